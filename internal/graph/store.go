package graph

import (
	"context"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/yungbote/jenny-backend/internal/logger"
	"github.com/yungbote/jenny-backend/internal/platform/neo4jdb"
)

// Store writes relationship edges and interaction audit nodes to Neo4j.
// Every write is best effort: the graph enriches recall but is never on the
// critical path of a user-facing reply.
type Store interface {
	AddRelation(ctx context.Context, userID, subject, predicate, object string) error
	LogInteraction(ctx context.Context, userID, message, agent, reply string) error
	RelatedEntities(ctx context.Context, userID, entity string, limit int) ([]Relation, error)
	Enabled() bool
}

type Relation struct {
	Subject   string
	Predicate string
	Object    string
}

type store struct {
	log    *logger.Logger
	client *neo4jdb.Client
}

// New accepts a nil client and degrades to a no-op store.
func New(log *logger.Logger, client *neo4jdb.Client) Store {
	return &store{
		log:    log.With("service", "GraphStore"),
		client: client,
	}
}

func (s *store) Enabled() bool {
	return s != nil && s.client != nil && s.client.Driver != nil
}

func (s *store) AddRelation(ctx context.Context, userID, subject, predicate, object string) error {
	if !s.Enabled() {
		return nil
	}
	subject = strings.TrimSpace(subject)
	predicate = strings.TrimSpace(predicate)
	object = strings.TrimSpace(object)
	if subject == "" || predicate == "" || object == "" {
		return nil
	}

	session := s.client.Driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.client.Database})
	defer session.Close(ctx)

	query := `
		MERGE (u:User {id: $user_id})
		MERGE (a:Entity {name: $subject, user_id: $user_id})
		MERGE (b:Entity {name: $object, user_id: $user_id})
		MERGE (u)-[:KNOWS]->(a)
		MERGE (a)-[r:RELATES {predicate: $predicate}]->(b)
		SET r.updated_at = $now`
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, query, map[string]any{
			"user_id":   userID,
			"subject":   subject,
			"predicate": predicate,
			"object":    object,
			"now":       time.Now().UTC().Format(time.RFC3339),
		})
	})
	if err != nil {
		s.log.Warn("graph relation write failed", "user_id", userID, "error", err)
	}
	return err
}

func (s *store) LogInteraction(ctx context.Context, userID, message, agent, reply string) error {
	if !s.Enabled() {
		return nil
	}

	session := s.client.Driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.client.Database})
	defer session.Close(ctx)

	query := `
		MERGE (u:User {id: $user_id})
		CREATE (i:Interaction {
			message: $message,
			agent: $agent,
			reply: $reply,
			at: $now
		})
		CREATE (u)-[:HAD]->(i)`
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, query, map[string]any{
			"user_id": userID,
			"message": message,
			"agent":   agent,
			"reply":   reply,
			"now":     time.Now().UTC().Format(time.RFC3339),
		})
	})
	if err != nil {
		s.log.Warn("graph interaction write failed", "user_id", userID, "error", err)
	}
	return err
}

func (s *store) RelatedEntities(ctx context.Context, userID, entity string, limit int) ([]Relation, error) {
	if !s.Enabled() {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	session := s.client.Driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.client.Database})
	defer session.Close(ctx)

	query := `
		MATCH (a:Entity {name: $entity, user_id: $user_id})-[r:RELATES]->(b:Entity)
		RETURN a.name AS subject, r.predicate AS predicate, b.name AS object
		LIMIT $limit`
	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, query, map[string]any{
			"user_id": userID,
			"entity":  strings.TrimSpace(entity),
			"limit":   limit,
		})
		if err != nil {
			return nil, err
		}
		var out []Relation
		for records.Next(ctx) {
			rec := records.Record()
			rel := Relation{}
			if v, ok := rec.Get("subject"); ok {
				rel.Subject, _ = v.(string)
			}
			if v, ok := rec.Get("predicate"); ok {
				rel.Predicate, _ = v.(string)
			}
			if v, ok := rec.Get("object"); ok {
				rel.Object, _ = v.(string)
			}
			out = append(out, rel)
		}
		return out, records.Err()
	})
	if err != nil {
		return nil, err
	}
	rels, _ := result.([]Relation)
	return rels, nil
}
