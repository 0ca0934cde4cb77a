package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// triggerSync runs one reconciliation pass synchronously and reports the
// final counts. Failures surface as a 500 with the captured message; the run
// itself has already been closed as errored by the engine.
func (s *Server) triggerSync(syncType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := s.engine.Run(c.Request.Context(), syncType)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"created": res.Created,
			"updated": res.Updated,
			"total":   res.Processed,
		})
	}
}

// listSyncRuns is the read-only audit listing. No update or delete exists on
// this surface.
func (s *Server) listSyncRuns(c *gin.Context) {
	limit := defaultPageLimit
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= maxPageLimit {
		limit = v
	}
	runs, err := s.engine.Ledger().Recent(limit, c.Query("sync_type"), c.Query("status"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(runs), "rows": runs})
}
