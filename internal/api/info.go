package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-map/internal/db"
	"github.com/joeblew999/plat-map/internal/event"
	"github.com/joeblew999/plat-map/internal/provider"
	"github.com/joeblew999/plat-map/internal/service"
)

type InfoHandler struct {
	dataDir string
	db      *db.DB
}

func NewInfoHandler(dataDir string, d *db.DB) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, db: d}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name        string               `json:"name" doc:"Service name"`
	Version     string               `json:"version" doc:"Service version"`
	DataDir     string               `json:"data_dir" doc:"Data directory path"`
	DB          string               `json:"db" doc:"Database connection status" example:"done"`
	Providers   []provider.Kind      `json:"providers" doc:"Supported map providers"`
	SourceTypes []service.SourceType `json:"source_types" doc:"Supported data source types"`
	LayerTypes  []service.LayerType  `json:"layer_types" doc:"Supported layer types"`
	EventTypes  []event.Type         `json:"event_types" doc:"Universal event types"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	status := "disabled"
	if h.db != nil {
		status = h.db.Status().String()
	}
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:        "plat-map",
		Version:     "0.1.0",
		DataDir:     h.dataDir,
		DB:          status,
		Providers:   provider.Kinds(),
		SourceTypes: service.SourceTypes(),
		LayerTypes:  service.LayerTypes(),
		EventTypes:  event.Types(),
	}}, nil
}
