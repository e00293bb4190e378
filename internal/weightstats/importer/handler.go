package importer

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/weightstats/internal/telemetry/tracing"
	"github.com/2beens/weightstats/pkg"
)

// Handler serves the spreadsheet upload and import status endpoints.
type Handler struct {
	importer *Importer
	registry *StatusRegistry
	cache    *freecache.Cache
}

func NewHandler(importer *Importer, registry *StatusRegistry, cache *freecache.Cache) *Handler {
	return &Handler{
		importer: importer,
		registry: registry,
		cache:    cache,
	}
}

// HandleImport ingests a CSV sheet, either as a multipart "file" field or
// as the raw request body.
func (handler *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.weightstats.import")
	defer span.End()

	var sheet io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			log.Tracef("import, read form file: %s", err)
			http.Error(w, "error, missing import file", http.StatusBadRequest)
			return
		}
		defer file.Close()
		sheet = file
	}

	status, err := handler.importer.ImportCSV(ctx, sheet)
	if err != nil {
		var missingCols *MissingColumnsError
		if errors.As(err, &missingCols) {
			http.Error(w, missingCols.Error(), http.StatusBadRequest)
			return
		}
		log.Errorf("import failed: %s", err)
		http.Error(w, "import failed", http.StatusInternalServerError)
		return
	}

	// imported rows change every derived number
	if handler.cache != nil {
		handler.cache.Clear()
	}

	statusJson, err := json.Marshal(status)
	if err != nil {
		log.Errorf("failed to marshal import status: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, statusJson, http.StatusOK)
}

func (handler *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.weightstats.import.status")
	defer span.End()

	statusJson, err := json.Marshal(handler.registry.Last())
	if err != nil {
		log.Errorf("failed to marshal import status: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, statusJson, http.StatusOK)
}
