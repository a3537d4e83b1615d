package httpapi

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/go9sky/tuckview/internal/filehistory"
	"github.com/go9sky/tuckview/tabledata"
)

const (
	msgOpened               = "source opened"
	msgClosed               = "connection closed"
	msgTablesListed         = "tables listed"
	msgTablesUnavailable    = "table list is not available from this backend"
	msgSchemaDescribed      = "schema described"
	msgSchemaPlaceholder    = "column information is not available from this backend"
	msgServerSidePagination = "rows served with server-side pagination"
	msgInMemoryPagination   = "rows served with in-memory pagination"
	msgRowsPlaceholder      = "table data is not available from this backend"
)

// msgConnectionNotFound mirrors the sentinel so HTTP clients and
// library callers see one consistent message.
var msgConnectionNotFound = tabledata.ErrConnectionNotFound.Error()

type openFileRequest struct {
	Path string `json:"path"`
}

type openFileResponse struct {
	ID           string                     `json:"id"`
	Source       string                     `json:"source"`
	Capabilities tabledata.CapabilityRecord `json:"capabilities"`
}

func (s *Server) openFile(c *gin.Context) {
	var request openFileRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		respondFailure(c, http.StatusBadRequest, "invalid request body: "+err.Error())

		return
	}

	handle, err := s.registry.Open(c.Request.Context(), request.Path)
	if err != nil {
		s.logWarn("opening source failed", "source", request.Path, "error", err.Error())
		respondFailure(c, openFailureStatus(err), err.Error())

		return
	}

	if s.history != nil && !strings.Contains(handle.Source, "://") {
		s.history.Record(handle.Source)
	}

	respondOK(c, msgOpened, openFileResponse{
		ID:           handle.ID,
		Source:       handle.Source,
		Capabilities: handle.Capabilities(),
	})
}

func openFailureStatus(err error) int {
	switch {
	case errors.Is(err, tabledata.ErrSourceNotFound):
		return http.StatusNotFound
	case errors.Is(err, tabledata.ErrSourceNotRecognized), errors.Is(err, tabledata.ErrEmptySource):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) closeFile(c *gin.Context) {
	s.registry.Close(c.Param("id"))
	respondOK(c, msgClosed, nil)
}

func (s *Server) listTables(c *gin.Context) {
	handle, found := s.registry.Get(c.Param("id"))
	if !found {
		respondFailure(c, http.StatusNotFound, msgConnectionNotFound)

		return
	}

	names, available := handle.Engine.ListTables(c.Request.Context())
	if !available {
		respondWarning(c, msgTablesUnavailable, gin.H{"tables": []string{}})

		return
	}

	respondOK(c, msgTablesListed, gin.H{"tables": names})
}

func (s *Server) tableSchema(c *gin.Context) {
	handle, found := s.registry.Get(c.Param("id"))
	if !found {
		respondFailure(c, http.StatusNotFound, msgConnectionNotFound)

		return
	}

	descriptor, err := handle.Engine.DescribeTable(c.Request.Context(), c.Param("table"))
	if err != nil {
		if errors.Is(err, tabledata.ErrTableNotFound) {
			respondFailure(c, http.StatusNotFound, err.Error())

			return
		}

		s.logError("describing table failed", "table", c.Param("table"), "error", err.Error())
		respondFailure(c, http.StatusInternalServerError, err.Error())

		return
	}

	if descriptor.IsPlaceholder() {
		respondWarning(c, msgSchemaPlaceholder, descriptor)

		return
	}

	respondOK(c, msgSchemaDescribed, descriptor)
}

func (s *Server) tableRows(c *gin.Context) {
	handle, found := s.registry.Get(c.Param("id"))
	if !found {
		respondFailure(c, http.StatusNotFound, msgConnectionNotFound)

		return
	}

	request := tabledata.PageRequest{
		Page:           intQuery(c, "page", 1),
		Limit:          intQuery(c, "limit", tabledata.DefaultPageLimit),
		SortField:      c.Query("sort"),
		SortDescending: strings.EqualFold(c.Query("order"), "desc"),
		Filters:        tabledata.ParseFilterParams(c.Request.URL.Query()),
	}

	result := handle.Engine.Query(c.Request.Context(), c.Param("table"), request)

	data := PageData{
		Page:  result.Page,
		Limit: result.Limit,
		Total: result.Total,
		Rows:  result.Rows,
	}

	switch {
	case result.IsPlaceholder():
		respondWarning(c, msgRowsPlaceholder, data)
	case result.ServedByBackend:
		respondOK(c, msgServerSidePagination, data)
	default:
		respondOK(c, msgInMemoryPagination, data)
	}
}

func (s *Server) capabilities(c *gin.Context) {
	handle, found := s.registry.Get(c.Param("id"))
	if !found {
		respondFailure(c, http.StatusNotFound, msgConnectionNotFound)

		return
	}

	respondOK(c, "capabilities reported", handle.Capabilities())
}

func (s *Server) databaseInfo(c *gin.Context) {
	handle, found := s.registry.Get(c.Param("id"))
	if !found {
		respondFailure(c, http.StatusNotFound, msgConnectionNotFound)

		return
	}

	names, available := handle.Engine.ListTables(c.Request.Context())

	var sizeBytes int64
	if !strings.Contains(handle.Source, "://") {
		if info, statErr := os.Stat(handle.Source); statErr == nil {
			sizeBytes = info.Size()
		}
	}

	respondOK(c, "database info reported", gin.H{
		"source":           handle.Source,
		"backend_name":     handle.Capabilities().BackendName,
		"opened_at":        handle.OpenedAt.UTC().Format(time.RFC3339),
		"size_bytes":       sizeBytes,
		"table_count":      len(names),
		"tables_available": available,
		"capabilities":     handle.Capabilities(),
	})
}

func (s *Server) recentFiles(c *gin.Context) {
	if s.history == nil {
		respondOK(c, "recent files listed", gin.H{"files": []filehistory.Entry{}})

		return
	}

	respondOK(c, "recent files listed", gin.H{"files": s.history.List()})
}

func (s *Server) removeRecentFile(c *gin.Context) {
	if s.history != nil {
		s.history.Remove(c.Param("id"))
	}

	respondOK(c, "recent file removed", nil)
}

func (s *Server) discoverFiles(c *gin.Context) {
	dir := c.Query("dir")
	if dir == "" {
		dir = "."
	}

	discovered, err := filehistory.Discover(dir, s.recognizers...)
	if err != nil {
		respondFailure(c, http.StatusBadRequest, err.Error())

		return
	}

	if discovered == nil {
		discovered = []filehistory.DiscoveredFile{}
	}

	respondOK(c, "files discovered", gin.H{"files": discovered})
}

func (s *Server) status(c *gin.Context) {
	respondOK(c, "service is healthy", gin.H{
		"status":           "ok",
		"open_connections": s.registry.Count(),
		"uptime_seconds":   int64(time.Since(s.startedAt).Seconds()),
	})
}

// intQuery parses a positive integer query parameter, falling back to
// the default on absence or garbage. Range clamping happens later in
// PageRequest.Normalized.
func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return parsed
}
