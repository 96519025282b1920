package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/knutdrand/language-app/internal/config"
	"github.com/knutdrand/language-app/internal/confusion"
	"github.com/knutdrand/language-app/internal/handlers"
	"github.com/knutdrand/language-app/internal/lesson"
	"github.com/knutdrand/language-app/internal/metrics"
	"github.com/knutdrand/language-app/internal/sampler"
	"github.com/knutdrand/language-app/internal/services"
	"github.com/knutdrand/language-app/internal/store"
	"github.com/knutdrand/language-app/internal/store/database"
	"github.com/knutdrand/language-app/internal/taxonomy"
	"github.com/knutdrand/language-app/internal/wordindex"
	"github.com/knutdrand/language-app/internal/xrand"
)

func buildRegistry(cfg *config.Config) *taxonomy.Registry {
	registry := taxonomy.NewRegistry()
	registry.RegisterFamily("tone", taxonomy.FamilyDefault{NClasses: 6, PriorStrength: cfg.PriorStrength})
	registry.RegisterFamily("vowel", taxonomy.FamilyDefault{NClasses: 12, PriorStrength: cfg.VowelPriorStrength})
	registry.Register(taxonomy.Descriptor{ID: "tone_1", Family: "tone", SyllableCount: 1, NClasses: 6, PriorStrength: cfg.PriorStrength})
	registry.Register(taxonomy.Descriptor{ID: "tone_2", Family: "tone", SyllableCount: 2, NClasses: 6, PriorStrength: cfg.PriorStrength})
	registry.Register(taxonomy.Descriptor{ID: "vowel_1", Family: "vowel", SyllableCount: 1, NClasses: 12, PriorStrength: cfg.VowelPriorStrength})
	registry.Register(taxonomy.Descriptor{ID: "vowel_2", Family: "vowel", SyllableCount: 2, NClasses: 12, PriorStrength: cfg.VowelPriorStrength})
	return registry
}

func buildIndexes() (map[wordindex.Family]*wordindex.Index, error) {
	words, err := wordindex.LoadEmbeddedCatalog("words.json")
	if err != nil {
		return nil, err
	}
	return map[wordindex.Family]*wordindex.Index{
		wordindex.FamilyTone:  wordindex.New(wordindex.FamilyTone, words),
		wordindex.FamilyVowel: wordindex.New(wordindex.FamilyVowel, words),
	}, nil
}

func main() {
	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: connecting to database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		log.Fatalf("main: running migrations: %v", err)
	}

	registry := buildRegistry(cfg)
	indexes, err := buildIndexes()
	if err != nil {
		log.Fatalf("main: loading word catalog: %v", err)
	}

	model := confusion.NewModel(confusion.KindLuce, cfg.BTMaxIter, cfg.BTTol, cfg.BTLogSpaceTol)
	rng := xrand.New(time.Now().UnixNano())

	samplerCfg := sampler.Config{
		PairMastery:            cfg.PairMastery,
		FourChoiceMastery:      cfg.FourChoiceMastery,
		PreviewProbability:     cfg.PreviewProbability,
		SamplingAggressiveness: cfg.SamplingAggressiveness,
		InitialStatePolicy:     confusion.InitialPolicy(cfg.InitialState),
	}
	smplr := sampler.New(registry, model, rng, indexes, samplerCfg)

	st := store.New(db)

	metrics.Register(prometheus.DefaultRegisterer)

	drillService := services.NewDrillService(smplr, st, registry)

	controllers := map[wordindex.Family]*lesson.Controller{
		wordindex.FamilyTone:  lesson.NewController(registry, rng, indexes[wordindex.FamilyTone], wordindex.FamilyTone, cfg.DrillsPerLesson),
		wordindex.FamilyVowel: lesson.NewController(registry, rng, indexes[wordindex.FamilyVowel], wordindex.FamilyVowel, cfg.DrillsPerLesson),
	}
	lessonService := services.NewLessonService(controllers, smplr, st)

	h := handlers.NewHandler(drillService, lessonService)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		log.Printf("main: metrics listening on :9100")
		if err := http.ListenAndServe(":9100", mux); err != nil {
			log.Printf("main: metrics server stopped: %v", err)
		}
	}()

	app := fiber.New()

	app.Get("/", h.Info)
	app.Get("/health", h.Health)

	app.Post("/drills/:family/next", h.NextDrill)
	app.Get("/drills/:problem_type/stats", h.Stats)

	app.Post("/lessons/:family/start", h.StartLesson)
	app.Post("/lessons/session/:session_id/next", h.NextLesson)
	app.Get("/lessons/:family/themes", h.Themes)

	log.Printf("main: drill engine listening on :%s", cfg.Port)
	log.Fatal(app.Listen("0.0.0.0:" + cfg.Port))
}
