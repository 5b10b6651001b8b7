package main

import (
	"fido2_rp_ms/config"
	"fido2_rp_ms/controller"
	"fido2_rp_ms/dtos/request"
	"fido2_rp_ms/middleware"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Server struct {
	CeremonyController controller.ICeremonyController
	Logger             *zap.Logger
}

// NOTE: Server Constructor
func NewServer(ceremonyController controller.ICeremonyController, logger *zap.Logger) *Server {
	return &Server{
		CeremonyController: ceremonyController,
		Logger:             logger,
	}
}

// NOTE: Start Fiber Server
func (s *Server) Start(conf config.Server) *fiber.App {
	// NOTE: Initialize Fiber Server
	app := fiber.New()

	app.Use(middleware.RecoveryMiddleware())
	app.Use(middleware.LoggingMiddleware(s.Logger))
	app.Use(middleware.GlobalRateLimiter())

	// NOTE: Define API paths (context path and grouping by version)
	contextPath := app.Group(conf.ContextPath)
	apiVersion := contextPath.Group(conf.ApiVersion)

	apiVersion.Get("/hello", s.CeremonyController.Hello)

	attestationGroup := apiVersion.Group("/attestation")
	attestationGroup.Post("/options",
		middleware.ValidateBody[request.AttestationOptionsRequest](),
		s.CeremonyController.AttestationOptions)
	attestationGroup.Post("/result",
		middleware.ValidateBody[request.AttestationResultRequest](),
		s.CeremonyController.AttestationResult)

	assertionGroup := apiVersion.Group("/assertion")
	assertionGroup.Post("/options",
		middleware.ValidateBody[request.AssertionOptionsRequest](),
		s.CeremonyController.AssertionOptions)
	assertionGroup.Post("/result",
		middleware.ValidateBody[request.AssertionResultRequest](),
		s.CeremonyController.AssertionResult)

	return app
}
