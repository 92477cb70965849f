// Package main provides the entry point for the NutriCore API server.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alchemorsel/nutricore/internal/infrastructure/container"
	"go.uber.org/fx"
)

// @title NutriCore API
// @version 1.0.0
// @description Nutrition-tracking core service: event bus, async meal-photo analysis pipeline,
// @description AI suggestion sessions, vector-backed nutrition lookup, scheduled reminder
// @description dispatch, and streaming chat orchestration.
// @termsOfService https://nutricore.example.com/terms
// @contact.name API Support
// @contact.url https://nutricore.example.com/support
// @contact.email support@nutricore.example.com
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter 'Bearer {token}' to authenticate
func main() {
	// Create Fx application with dependency injection
	app := fx.New(
		// Application metadata
		fx.NopLogger, // Use our own logger instead of Fx's

		// Provide all dependencies
		container.Module,

		// Invoke startup functions
		fx.Invoke(func() {
			fmt.Println(`
 _   _       _        _ _____
| \ | |_   _| |_ _ __(_)  ___|__  _ __ ___
|  \| | | | | __| '__| | |_ / _ \| '__/ _ \
| |\  | |_| | |_| |  | |  _| (_) | | |  __/
|_| \_|\__,_|\__|_|  |_|_|  \___/|_|  \___|
          meal analysis - suggestions - nutrition lookup - reminders - chat
			`)
		}),
	)
	
	// Create context that cancels on interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	
	// Start the application
	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
	
	// Wait for interrupt signal
	<-ctx.Done()
	
	// Graceful shutdown
	fmt.Println("\nShutting down gracefully...")
	
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	
	if err := app.Stop(shutdownCtx); err != nil {
		log.Fatalf("Failed to stop application gracefully: %v", err)
	}
	
	fmt.Println("Application stopped successfully")
}