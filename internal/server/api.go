package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/TobiSchelling/trendfinder/internal/database"
	"github.com/TobiSchelling/trendfinder/internal/pipeline"
	"github.com/TobiSchelling/trendfinder/internal/trends"
)

type runJSON struct {
	ID           string                 `json:"id"`
	Query        string                 `json:"query"`
	MaxResults   int                    `json:"max_results"`
	ArticleCount int                    `json:"article_count"`
	ClusterCount int                    `json:"cluster_count"`
	ChunkCount   int                    `json:"chunk_count"`
	FailedChunks int                    `json:"failed_chunks"`
	DurationMS   int64                  `json:"duration_ms"`
	CreatedAt    string                 `json:"created_at"`
	NotifiedAt   *string                `json:"notified_at,omitempty"`
	TrendCount   int                    `json:"trend_count"`
	Trends       trends.RankedTrendList `json:"trends,omitempty"`
}

func toRunJSON(r *database.Run) runJSON {
	return runJSON{
		ID:           r.ID,
		Query:        r.Query,
		MaxResults:   r.MaxResults,
		ArticleCount: r.ArticleCount,
		ClusterCount: r.ClusterCount,
		ChunkCount:   r.ChunkCount,
		FailedChunks: r.FailedChunks,
		DurationMS:   r.DurationMS,
		CreatedAt:    r.CreatedAt,
		NotifiedAt:   r.NotifiedAt,
		TrendCount:   r.TrendCount,
		Trends:       r.Trends,
	}
}

type startRunRequest struct {
	Query      string `json:"query"`
	MaxResults *int   `json:"max_results"`
	NoSave     bool   `json:"no_save"`
}

type stepJSON struct {
	Name    string `json:"name"`
	Summary string `json:"summary,omitempty"`
	Error   string `json:"error,omitempty"`
}

type startRunResponse struct {
	RunID        string                 `json:"run_id,omitempty"`
	Query        string                 `json:"query"`
	Articles     int                    `json:"articles"`
	Clusters     int                    `json:"clusters"`
	FailedChunks int                    `json:"failed_chunks"`
	Trends       trends.RankedTrendList `json:"trends"`
	Steps        []stepJSON             `json:"steps"`
}

func (s *Server) apiListRuns(c *gin.Context) {
	f := database.RunFilter{
		Query: c.Query("query"),
		Since: c.Query("since"),
		Limit: recentRuns,
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		f.Limit = n
	}

	runs, err := s.db.ListRuns(f)
	if err != nil {
		if errors.Is(err, database.ErrInvalidSince) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list runs"})
		return
	}

	out := make([]runJSON, 0, len(runs))
	for i := range runs {
		out = append(out, toRunJSON(&runs[i]))
	}
	c.JSON(http.StatusOK, gin.H{"runs": out, "count": len(out)})
}

func (s *Server) apiGetRun(c *gin.Context) {
	run, err := s.db.GetRun(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load run"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, toRunJSON(run))
}

func (s *Server) apiStartRun(c *gin.Context) {
	if s.runner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "runs are disabled on this server"})
		return
	}

	var req startRunRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
	}
	maxResults := s.opts.DefaultMaxResults
	if req.MaxResults != nil {
		maxResults = *req.MaxResults
	}
	if maxResults <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": trends.ErrInvalidMaxResults.Error()})
		return
	}

	res, err := s.runner.Run(c.Request.Context(), req.Query, maxResults, pipeline.RunOptions{NoSave: req.NoSave})
	if err != nil {
		c.JSON(runErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	resp := startRunResponse{
		RunID:  res.RunID,
		Query:  res.Query,
		Trends: res.Trends,
	}
	if res.Stats != nil {
		resp.Articles = res.Stats.Articles
		resp.Clusters = res.Stats.Clusters
		resp.FailedChunks = res.Stats.FailedChunks
	}
	for _, st := range res.Steps {
		sj := stepJSON{Name: st.Name, Summary: st.Summary}
		if st.Err != nil {
			sj.Error = st.Err.Error()
		}
		resp.Steps = append(resp.Steps, sj)
	}
	c.JSON(http.StatusCreated, resp)
}
