package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eigerco/fraudledger/internal/record"
)

func (s *Server) Health(c *gin.Context) {
	n, err := s.queries.ReportCounter()
	if err != nil {
		s.log.Error().Err(err).Msg("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "reports": n})
}

type reportView struct {
	record.Report
	CanFinalize bool               `json:"canFinalize"`
	Settlement  *record.Settlement `json:"settlement,omitempty"`
}

func (s *Server) GetReport(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}
	r, err := s.queries.GetReport(id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	view := reportView{Report: r}
	if r.Finalized {
		st, err := s.queries.Settlement(id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		view.Settlement = &st
	} else if view.CanFinalize, err = s.queries.CanFinalize(id); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": view})
}

func (s *Server) GetValidations(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}
	vals, err := s.queries.Validations(id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	tally, err := s.queries.VoteCounts(id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if vals == nil {
		vals = []record.Validation{}
	}
	c.JSON(http.StatusOK, gin.H{"data": vals, "tally": tally})
}

func (s *Server) ListPending(c *gin.Context) {
	ids, err := s.queries.ListPendingReports()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": nonNil(ids)})
}

func (s *Server) ListFinalizable(c *gin.Context) {
	ids, err := s.queries.ListFinalizableReports()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": nonNil(ids)})
}

func (s *Server) CustomerReports(c *gin.Context) {
	customer, ok := address(c)
	if !ok {
		return
	}
	reports, err := s.queries.ReportsForCustomer(customer)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if reports == nil {
		reports = []record.Report{}
	}
	c.JSON(http.StatusOK, gin.H{"data": reports, "count": len(reports)})
}

func (s *Server) CustomerScore(c *gin.Context) {
	customer, ok := address(c)
	if !ok {
		return
	}
	score, err := s.queries.FraudScore(customer)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customer": customer, "score": score})
}

func (s *Server) MemberStats(c *gin.Context) {
	member, ok := address(c)
	if !ok {
		return
	}
	stats, err := s.queries.MemberStats(member)
	if err != nil {
		abortWithError(c, err)
		return
	}
	balance, err := s.queries.Balance(member)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"member": member, "data": stats, "balance": balance})
}

func nonNil(ids []uint64) []uint64 {
	if ids == nil {
		return []uint64{}
	}
	return ids
}
