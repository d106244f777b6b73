package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	cataloghandler "github.com/skillmatrix/skillmatrix-backend/internal/catalog/handler"
	catalogrepo "github.com/skillmatrix/skillmatrix-backend/internal/catalog/repository"
	catalogservice "github.com/skillmatrix/skillmatrix-backend/internal/catalog/service"
	employeehandler "github.com/skillmatrix/skillmatrix-backend/internal/employee/handler"
	employeerepo "github.com/skillmatrix/skillmatrix-backend/internal/employee/repository"
	employeeservice "github.com/skillmatrix/skillmatrix-backend/internal/employee/service"
	evaluationhandler "github.com/skillmatrix/skillmatrix-backend/internal/evaluation/handler"
	evaluationrepo "github.com/skillmatrix/skillmatrix-backend/internal/evaluation/repository"
	evaluationservice "github.com/skillmatrix/skillmatrix-backend/internal/evaluation/service"
	ingestionhandler "github.com/skillmatrix/skillmatrix-backend/internal/ingestion/handler"
	ingestionservice "github.com/skillmatrix/skillmatrix-backend/internal/ingestion/service"
	orghandler "github.com/skillmatrix/skillmatrix-backend/internal/org/handler"
	orgrepo "github.com/skillmatrix/skillmatrix-backend/internal/org/repository"
	orgservice "github.com/skillmatrix/skillmatrix-backend/internal/org/service"
	propagationhandler "github.com/skillmatrix/skillmatrix-backend/internal/propagation/handler"
	propagationrepo "github.com/skillmatrix/skillmatrix-backend/internal/propagation/repository"
	propagationservice "github.com/skillmatrix/skillmatrix-backend/internal/propagation/service"
	reportinghandler "github.com/skillmatrix/skillmatrix-backend/internal/reporting/handler"
	reportingrepo "github.com/skillmatrix/skillmatrix-backend/internal/reporting/repository"
	reportingservice "github.com/skillmatrix/skillmatrix-backend/internal/reporting/service"
	"github.com/skillmatrix/skillmatrix-backend/pkg/config"
	"github.com/skillmatrix/skillmatrix-backend/pkg/database"
	"github.com/skillmatrix/skillmatrix-backend/pkg/httputil"
	"github.com/skillmatrix/skillmatrix-backend/pkg/logger"
	"github.com/skillmatrix/skillmatrix-backend/pkg/messaging"
	"github.com/skillmatrix/skillmatrix-backend/pkg/principal"
)

func main() {
	// Load configuration
	cfg, err := config.LoadWithValidation("competency-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("competency-service", cfg.Server.Environment)
	log.Info().Msg("starting Competency Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publisher
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeCompetencyEvents, "competency-service", log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Initialize repositories
	competencyRepo := catalogrepo.NewCompetencyRepository(db)
	divisionRepo := orgrepo.NewDivisionRepository(db)
	departmentRepo := orgrepo.NewDepartmentRepository(db)
	roleRepo := orgrepo.NewRoleRepository(db)
	departmentRoleRepo := orgrepo.NewDepartmentRoleRepository(db)
	roleJobRepo := orgrepo.NewRoleJobRepository(db)
	employeeRepo := employeerepo.NewEmployeeRepository(db)
	userRepo := employeerepo.NewUserRepository(db)
	roleCompRepo := propagationrepo.NewRoleCompetencyRepository(db)
	empCompRepo := propagationrepo.NewEmployeeCompetencyRepository(db)
	evaluationRepo := evaluationrepo.NewEvaluationRepository(db)
	reportingRepo := reportingrepo.NewReportingRepository(db)

	// Initialize services
	catalogService := catalogservice.NewCatalogService(competencyRepo, log)
	orgService := orgservice.NewOrgService(db, divisionRepo, departmentRepo, roleRepo, departmentRoleRepo, log)
	jobService := orgservice.NewJobService(db, roleJobRepo, roleRepo, log)
	propagationService := propagationservice.NewPropagationService(db, roleCompRepo, empCompRepo, competencyRepo, roleRepo, employeeRepo, log)
	employeeService := employeeservice.NewEmployeeService(db, employeeRepo, userRepo, departmentRepo, roleRepo, departmentRoleRepo, propagationService, log)
	evaluationService := evaluationservice.NewEvaluationService(db, evaluationRepo, employeeRepo, userRepo, empCompRepo, publisher, log)
	reportingService := reportingservice.NewReportingService(reportingRepo, departmentRepo, employeeRepo, log)
	ingestionService := ingestionservice.NewIngestionService(db, employeeRepo, userRepo, departmentRepo, roleRepo, roleJobRepo, competencyRepo, empCompRepo, log)

	// Initialize handlers
	competencyHandler := cataloghandler.NewCompetencyHandler(catalogService, log)
	divisionHandler := orghandler.NewDivisionHandler(orgService, log)
	departmentHandler := orghandler.NewDepartmentHandler(orgService, log)
	roleHandler := orghandler.NewRoleHandler(orgService, log)
	jobHandler := orghandler.NewJobHandler(jobService, log)
	employeeHandler := employeehandler.NewEmployeeHandler(employeeService, log)
	propagationHandler := propagationhandler.NewPropagationHandler(propagationService, log)
	evaluationHandler := evaluationhandler.NewEvaluationHandler(evaluationService, log)
	reportingHandler := reportinghandler.NewReportingHandler(reportingService, log)
	ingestionHandler := ingestionhandler.NewIngestionHandler(ingestionService, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "competency-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// API routes (authenticated)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(principal.Middleware(cfg.JWT.Secret))

		competencyHandler.Routes(r)
		divisionHandler.Routes(r)
		departmentHandler.Routes(r)
		roleHandler.Routes(r)
		jobHandler.Routes(r)
		employeeHandler.Routes(r)
		propagationHandler.Routes(r)
		evaluationHandler.Routes(r)
		reportingHandler.Routes(r)
		ingestionHandler.Routes(r)
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
