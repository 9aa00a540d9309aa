package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/kmhistory/quizhub-backend/internal/config"
	"github.com/kmhistory/quizhub-backend/internal/database"
	"github.com/kmhistory/quizhub-backend/internal/logger"
	"github.com/kmhistory/quizhub-backend/internal/model"
	"github.com/kmhistory/quizhub-backend/internal/repository"
	"github.com/kmhistory/quizhub-backend/internal/service"
)

// seedFile is the fixture format: topics first, then questions referencing
// topics by name so the file survives database resets.
type seedFile struct {
	Topics    []model.TopicRequest `json:"topics"`
	Questions []seedQuestion       `json:"questions"`
}

type seedQuestion struct {
	model.QuestionRequest
	TopicNames []string `json:"topic_names"`
}

func main() {
	var path string
	flag.StringVar(&path, "file", "seed/questions.json", "Path to the seed JSON file")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	raw, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Failed to read seed file")
	}

	var seed seedFile
	if err := json.Unmarshal(raw, &seed); err != nil {
		log.Fatal().Err(err).Msg("Invalid seed file")
	}

	topicRepo := repository.NewTopicRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	topicService := service.NewTopicService(topicRepo)
	questionService := service.NewQuestionService(questionRepo, topicRepo)

	// Topics first; existing names are reused instead of duplicated.
	topicIDsByName := make(map[string]int)
	existing, err := topicService.List(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list topics")
	}
	for _, t := range existing {
		topicIDsByName[t.Name] = t.ID
	}

	createdTopics := 0
	for _, req := range seed.Topics {
		if _, ok := topicIDsByName[req.Name]; ok {
			continue
		}
		topic, err := topicService.Create(ctx, req)
		if err != nil {
			log.Fatal().Err(err).Str("topic", req.Name).Msg("Failed to create topic")
		}
		topicIDsByName[topic.Name] = topic.ID
		createdTopics++
	}

	createdQuestions := 0
	for i, sq := range seed.Questions {
		req := sq.QuestionRequest
		for _, name := range sq.TopicNames {
			id, ok := topicIDsByName[name]
			if !ok {
				log.Fatal().Str("topic", name).Int("question", i).Msg("Unknown topic name in seed file")
			}
			req.TopicIDs = append(req.TopicIDs, id)
		}

		if _, err := questionService.Create(ctx, req); err != nil {
			log.Fatal().Err(err).Int("question", i).Msg("Failed to create question")
		}
		createdQuestions++
	}

	fmt.Printf("Seeded %d topics and %d questions from %s\n", createdTopics, createdQuestions, path)
}
