//go:build e2e

// Package e2e contains end-to-end integration tests using a real DynamoDB table.
// Run with: go test -tags=e2e -v ./e2e/...
//
// LATTICE_E2E_ENDPOINT points the tests at DynamoDB Local instead of AWS, and
// LATTICE_E2E_PROFILE selects a shared config profile.
package e2e

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"

	"github.com/jacentio/lattice/internal/awsclient"
	"github.com/jacentio/lattice/kv"
	"github.com/jacentio/lattice/relation"
)

// Table names are unique per test run to avoid conflicts.
const tablePrefix = "lattice-e2e-test"

var (
	testID    string
	tableName string

	ddbClient *dynamodb.Client
	testStore *kv.Dynamo
)

// --- Test Entities ---

// Member is a user-like entity.
type Member struct {
	ID string
}

func (m Member) EntityType() string { return "member" }
func (m Member) EntityID() string   { return m.ID }

// Group is the target side of membership relations.
type Group struct {
	ID string
}

func (g Group) EntityType() string { return "group" }
func (g Group) EntityID() string   { return g.ID }

// --- Test Setup & Teardown ---

func TestMain(m *testing.M) {
	testID = uuid.New().String()[:8]
	tableName = fmt.Sprintf("%s-%s", tablePrefix, testID)

	fmt.Printf("Test ID: %s\n", testID)
	fmt.Printf("Table: %s\n", tableName)

	ctx := context.Background()
	client, err := awsclient.DynamoDB(ctx, awsclient.Options{
		Profile:  os.Getenv("LATTICE_E2E_PROFILE"),
		Endpoint: os.Getenv("LATTICE_E2E_ENDPOINT"),
	})
	if err != nil {
		fmt.Printf("Failed to load AWS config: %v\n", err)
		os.Exit(1)
	}
	ddbClient = client

	// A small page size makes every list below span several Query pages.
	testStore = kv.NewDynamo(ddbClient, kv.DynamoConfig{Table: tableName, PageSize: 2})
	if err := testStore.EnsureTable(ctx); err != nil {
		fmt.Printf("Failed to create table: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	if _, err := ddbClient.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(tableName),
	}); err != nil {
		fmt.Printf("Warning: failed to delete table %s: %v\n", tableName, err)
	}

	os.Exit(code)
}

func newGraph(t *testing.T) *relation.Graph {
	t.Helper()
	reg := relation.NewRegistry()
	reg.Register("member", relation.LoaderFunc(func(_ context.Context, id string) (relation.Entity, error) {
		return Member{ID: id}, nil
	}))
	reg.Register("group", relation.LoaderFunc(func(_ context.Context, id string) (relation.Entity, error) {
		return Group{ID: id}, nil
	}))

	cfg := relation.DefaultConfig()
	// Isolate every test under its own root.
	cfg.Root = "/" + uuid.New().String()[:8]
	return relation.New(testStore, reg, cfg)
}

func mustRelation(t *testing.T, g *relation.Graph, model, attr string) *relation.Index {
	t.Helper()
	x, err := g.Relation(model, attr)
	if err != nil {
		t.Fatalf("Relation: %v", err)
	}
	return x
}

// --- Index Tests ---

func TestIndex_PutHasCountDel(t *testing.T) {
	ctx := context.Background()
	joined := mustRelation(t, newGraph(t), "member", "joined")
	m := Member{ID: "m1"}
	g := Group{ID: "g1"}

	edge, err := joined.Put(ctx, m, g)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if edge.Count != 1 || edge.ToType != "group" {
		t.Errorf("Put = %+v", edge)
	}

	has, err := joined.Has(ctx, m, g)
	if err != nil || !has {
		t.Errorf("Has = %t, %v", has, err)
	}

	_, err = joined.Put(ctx, m, g)
	var exists *relation.ExistsError
	if !errors.As(err, &exists) || exists.Edge.ID != edge.ID {
		t.Errorf("expected ExistsError for %s, got %v", edge.ID, err)
	}

	res, err := joined.Del(ctx, m, g)
	if err != nil {
		t.Fatalf("Del: %v", err)
	}
	if res.Count != 0 || !res.Removed {
		t.Errorf("Del = %+v", res)
	}

	res, err = joined.Del(ctx, m, g)
	if err != nil || res.Removed {
		t.Errorf("second Del = %+v, %v", res, err)
	}
}

func TestIndex_ListPaged(t *testing.T) {
	ctx := context.Background()
	joined := mustRelation(t, newGraph(t), "member", "joined")
	m := Member{ID: "m1"}

	var want []string
	for i := 0; i < 7; i++ {
		g := Group{ID: fmt.Sprintf("g%d", i)}
		if _, err := joined.Put(ctx, m, g); err != nil {
			t.Fatalf("Put: %v", err)
		}
		want = append(want, g.ID)
	}

	all, err := joined.All(ctx, m, relation.ListOptions{Reverse: relation.Bool(false)})
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != len(want) {
		t.Fatalf("listed %d, want %d", len(all), len(want))
	}
	for i, r := range all {
		if r.Entity.EntityID() != want[i] {
			t.Errorf("position %d: got %s, want %s", i, r.Entity.EntityID(), want[i])
		}
	}

	newest, err := joined.All(ctx, m, relation.ListOptions{Limit: 3})
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(newest) != 3 || newest[0].Entity.EntityID() != "g6" || newest[2].Entity.EntityID() != "g4" {
		t.Errorf("newest three = %v", newest)
	}

	bounded, err := joined.All(ctx, m, relation.ListOptions{
		Start:   all[2].RelationID(),
		End:     all[4].RelationID(),
		Reverse: relation.Bool(false),
	})
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(bounded) != 3 || bounded[0].Entity.EntityID() != "g2" {
		t.Errorf("bounded = %v", bounded)
	}
}

func TestIndex_ConcurrentPut(t *testing.T) {
	ctx := context.Background()
	joined := mustRelation(t, newGraph(t), "member", "joined")
	m := Member{ID: "m1"}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := joined.Put(ctx, m, Group{ID: fmt.Sprintf("g%d", i)}); err != nil {
				t.Errorf("Put: %v", err)
			}
		}(i)
	}
	wg.Wait()

	n, err := joined.Count(ctx, m)
	if err != nil || n != 10 {
		t.Errorf("Count = %d, %v", n, err)
	}
}

// --- Bidirectional Tests ---

func TestPair_LinkUnlink(t *testing.T) {
	ctx := context.Background()
	graph := newGraph(t)
	pair := graph.Pair("joined", "members")
	m := Member{ID: "m1"}
	g := Group{ID: "g1"}

	if _, err := pair.Put(ctx, m, g); err != nil {
		t.Fatalf("Put: %v", err)
	}
	state, err := pair.State(ctx, m, g)
	if err != nil || state != relation.StatePresentBoth {
		t.Errorf("State = %s, %v", state, err)
	}

	members, err := mustRelation(t, graph, "group", "members").All(ctx, g, relation.ListOptions{})
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(members) != 1 || members[0].Entity.EntityID() != "m1" {
		t.Errorf("members = %v", members)
	}

	if err := pair.Del(ctx, m, g); err != nil {
		t.Fatalf("Del: %v", err)
	}
	has, err := pair.Has(ctx, m, g)
	if err != nil || has {
		t.Errorf("Has after Del = %t, %v", has, err)
	}
}

func TestPair_DetectsOneSidedEdge(t *testing.T) {
	ctx := context.Background()
	graph := newGraph(t)
	m := Member{ID: "m1"}
	g := Group{ID: "g1"}

	if _, err := mustRelation(t, graph, "member", "joined").Put(ctx, m, g); err != nil {
		t.Fatalf("Put: %v", err)
	}

	_, err := graph.Pair("joined", "members").Has(ctx, m, g)
	if !errors.Is(err, relation.ErrInconsistent) {
		t.Errorf("expected ErrInconsistent, got %v", err)
	}
}
