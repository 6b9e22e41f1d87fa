package driver

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/showrunner/internal/core/model"
)

// GraphArchive stores episodes in a neo4j-compatible graph database
// (Neo4j or Memgraph over bolt).
type GraphArchive struct {
	Driver neo4j.DriverWithContext
}

func NewGraphArchive(uri, username, password string) (*GraphArchive, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}

	if err := driver.VerifyConnectivity(context.Background()); err != nil {
		return nil, err
	}

	log.Println("Connected to episode archive")
	return &GraphArchive{Driver: driver}, nil
}

func (a *GraphArchive) Close(ctx context.Context) error {
	return a.Driver.Close(ctx)
}

func (a *GraphArchive) execute(ctx context.Context, query string, params map[string]interface{}) error {
	_, err := neo4j.ExecuteQuery(ctx, a.Driver, query, params, neo4j.EagerResultTransformer)
	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	return nil
}

// SaveEpisode upserts the episode, its scenes, the scene ordering edges and
// the character cast.
func (a *GraphArchive) SaveEpisode(ctx context.Context, ep *model.Episode) error {
	if err := a.execute(ctx, SaveEpisodeNodeQuery, map[string]interface{}{
		"uuid":            ep.ID,
		"title":           ep.Title,
		"synopsis":        ep.Synopsis,
		"genre":           ep.Genre,
		"tone":            ep.Tone,
		"average_quality": ep.AverageQuality,
		"truncated":       ep.Truncated,
		"created_at":      time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return fmt.Errorf("saving episode %s: %w", ep.ID, err)
	}

	for _, scene := range ep.Scenes {
		sceneUUID := fmt.Sprintf("%s/%s", ep.ID, scene.ID)
		if err := a.execute(ctx, SaveSceneNodeQuery, map[string]interface{}{
			"uuid":             sceneUUID,
			"storyline":        scene.Storyline,
			"idx":              scene.Index,
			"location":         scene.Location,
			"description":      scene.Description,
			"tension":          scene.Tension,
			"quality_score":    scene.QualityScore,
			"coherence_status": string(scene.Coherence),
			"fallback":         scene.Fallback,
			"summary":          scene.Summary,
		}); err != nil {
			return fmt.Errorf("saving scene %s: %w", scene.ID, err)
		}

		if err := a.execute(ctx, SaveHasSceneEdgeQuery, map[string]interface{}{
			"episode_uuid": ep.ID,
			"scene_uuid":   sceneUUID,
			"idx":          scene.Index,
		}); err != nil {
			return fmt.Errorf("linking scene %s: %w", scene.ID, err)
		}

		for _, name := range scene.Characters {
			if err := a.execute(ctx, SaveCharacterNodeQuery, map[string]interface{}{"name": name}); err != nil {
				return fmt.Errorf("saving character %s: %w", name, err)
			}
			if err := a.execute(ctx, SaveFeaturesEdgeQuery, map[string]interface{}{
				"scene_uuid": sceneUUID,
				"name":       name,
			}); err != nil {
				return fmt.Errorf("linking character %s: %w", name, err)
			}
		}
	}
	return nil
}

// BuildIndices creates lookup indices; failures are logged since the index
// may already exist.
func (a *GraphArchive) BuildIndices(ctx context.Context) error {
	queries := []string{
		"CREATE INDEX ON :Episode(uuid);",
		"CREATE INDEX ON :Scene(uuid);",
		"CREATE INDEX ON :Character(name);",
	}
	for _, q := range queries {
		if err := a.execute(ctx, q, nil); err != nil {
			log.Printf("Warning: failed to create index '%s': %v", q, err)
		}
	}
	return nil
}
