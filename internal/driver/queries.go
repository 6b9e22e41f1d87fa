package driver

const (
	SaveEpisodeNodeQuery = `
		MERGE (e:Episode {uuid: $uuid})
		SET e.title = $title,
			e.synopsis = $synopsis,
			e.genre = $genre,
			e.tone = $tone,
			e.average_quality = $average_quality,
			e.truncated = $truncated,
			e.created_at = $created_at
		RETURN e.uuid AS uuid
	`

	SaveSceneNodeQuery = `
		MERGE (s:Scene {uuid: $uuid})
		SET s.storyline = $storyline,
			s.idx = $idx,
			s.location = $location,
			s.description = $description,
			s.tension = $tension,
			s.quality_score = $quality_score,
			s.coherence_status = $coherence_status,
			s.fallback = $fallback,
			s.summary = $summary
		RETURN s.uuid AS uuid
	`

	SaveCharacterNodeQuery = `
		MERGE (c:Character {name: $name})
		RETURN c.name AS name
	`

	SaveHasSceneEdgeQuery = `
		MATCH (e:Episode {uuid: $episode_uuid})
		MATCH (s:Scene {uuid: $scene_uuid})
		MERGE (e)-[r:HAS_SCENE]->(s)
		SET r.idx = $idx
		RETURN s.uuid AS uuid
	`

	SaveFeaturesEdgeQuery = `
		MATCH (s:Scene {uuid: $scene_uuid})
		MATCH (c:Character {name: $name})
		MERGE (s)-[r:FEATURES]->(c)
		RETURN c.name AS name
	`
)
