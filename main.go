package main

import (
	"log"
	"os"

	"holocard_back/authorization"
	"holocard_back/catalog"
	"holocard_back/drafts"
	"holocard_back/tilt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func mustLoadEnv() {
	_ = godotenv.Load()
}

func main() {
	mustLoadEnv()

	r := gin.Default()
	r.Use(cors.Default())

	auth, err := authorization.NewModuleFromEnv()
	if err != nil {
		log.Fatalf("init authorization: %v", err)
	}
	guard := auth.Guard()

	catalogModule, err := catalog.RegisterRoutes(r, guard)
	if err != nil {
		log.Fatalf("register catalog routes: %v", err)
	}

	if _, err := drafts.RegisterRoutes(r, guard, catalogModule.Catalog()); err != nil {
		log.Fatalf("register draft routes: %v", err)
	}

	if _, err := tilt.RegisterRoutes(r); err != nil {
		log.Fatalf("register tilt routes: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatalf("start server: %v", err)
	}
}
