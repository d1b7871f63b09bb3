package internal

import (
	"net/http"
	"rad/internal/controllers"
	"rad/internal/providers"
	"rad/internal/structures"
)

func InitRoutes(apiController *controllers.ApiController, ingestController *controllers.IngestController, conf *structures.Config) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Get("/status", http.HandlerFunc(apiController.GetStatus))
	routers.Get("/progress", http.HandlerFunc(apiController.GetProgress))
	routers.Get("/ignored", http.HandlerFunc(apiController.GetIgnored))
	routers.Get("/top", http.HandlerFunc(apiController.GetTop))
	routers.Get("/stats", http.HandlerFunc(apiController.GetStats))
	routers.Post("/ingest", http.HandlerFunc(ingestController.ReceiveMessage))
	routers.Post("/members", http.HandlerFunc(ingestController.ReceiveMemberCount))
	return routers
}
