package server

import (
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"stock-insight/src/helpers"
	"stock-insight/src/models"

	"github.com/gin-gonic/gin"
)

const (
	pageTitle    = "📈 Stock Price Prediction App"
	pageSubtitle = "AI-powered insights for smarter investing"
	pageFooter   = "⚠️ This is not financial advice"
)

var templateFuncs = template.FuncMap{
	"price": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"pricePtr": func(v *float64) string {
		if v == nil {
			return "–"
		}
		return fmt.Sprintf("%.2f", *v)
	},
}

type dashboardView struct {
	Title    string
	Subtitle string
	Footer   string
	Ticker   string
	Start    string
	End      string
	Result   *models.MAnalysisResult
	Warning  string
	Error    string
}

// -----------------------------------------------------------------------------

// statusFor maps pipeline errors to HTTP codes.
func statusFor(err error) int {
	switch {
	case helpers.IsValidation(err):
		return http.StatusBadRequest
	case helpers.IsEmptySeries(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

// -----------------------------------------------------------------------------

func (s *InsightServer) sessionFrom(c *gin.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if v, err := c.Cookie(sessionCookie); err == nil {
		return v
	}
	return ""
}

func (s *InsightServer) rememberSession(c *gin.Context, id string) {
	maxAge := s.Config.Session.TTLMinutes * 60
	c.SetCookie(sessionCookie, id, maxAge, "/", "", false, true)
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

// getDashboard renders the form and, when a ticker is given, the analysis.
func (s *InsightServer) getDashboard(c *gin.Context) {
	view := dashboardView{
		Title:    pageTitle,
		Subtitle: pageSubtitle,
		Footer:   pageFooter,
		Ticker:   c.DefaultQuery("ticker", s.Config.DataSource.DefaultTicker),
		Start:    c.DefaultQuery("start", s.Config.DataSource.DefaultStart),
		End:      c.DefaultQuery("end", s.Config.DataSource.DefaultEnd),
	}

	if _, submitted := c.GetQuery("ticker"); submitted {
		req := models.MAnalysisRequest{
			Ticker:    view.Ticker,
			Start:     view.Start,
			End:       view.End,
			SessionID: s.sessionFrom(c, ""),
			Origin:    models.OriginHTTP,
		}
		res, err := s.Analyzer.Run(c.Request.Context(), req)
		switch {
		case err == nil:
			view.Result = res
			s.rememberSession(c, res.SessionID)
		case helpers.IsEmptySeries(err) || helpers.IsValidation(err):
			view.Warning = helpers.UserMessage(err)
		default:
			view.Error = helpers.UserMessage(err)
		}
	}

	c.HTML(http.StatusOK, "dashboard.html", view)
}

// -----------------------------------------------------------------------------

func (s *InsightServer) postAnalyze(c *gin.Context) {
	var req models.MAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request body must be JSON with a ticker field."})
		return
	}
	req.SessionID = s.sessionFrom(c, req.SessionID)
	req.Origin = models.OriginHTTP

	res, err := s.Analyzer.Run(c.Request.Context(), req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": helpers.UserMessage(err)})
		return
	}

	s.rememberSession(c, res.SessionID)
	c.JSON(http.StatusOK, res)
}

// -----------------------------------------------------------------------------

func (s *InsightServer) getHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	ticker := strings.ToUpper(strings.TrimSpace(c.Query("ticker")))

	records, err := s.DB.RecentAnalyses(c.Request.Context(), ticker, limit)
	if err != nil {
		s.Logger.Error("History query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history is unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticker": ticker, "analyses": records})
}

// -----------------------------------------------------------------------------

func (s *InsightServer) getTickers(c *gin.Context) {
	tickers, err := s.DB.ListTickers(c.Request.Context())
	if err != nil {
		s.Logger.Error("Ticker query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tickers are unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickers": tickers})
}

// -----------------------------------------------------------------------------

func (s *InsightServer) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"default_ticker": s.Config.DataSource.DefaultTicker,
		"default_start":  s.Config.DataSource.DefaultStart,
		"default_end":    s.Config.DataSource.DefaultEnd,
		"sources":        s.Config.DataSource.Sources,
		"min_rows":       s.Config.Analysis.MinRows,
		"table_rows":     s.Config.Analysis.TableRows,
		"sma_window":     s.Config.Analysis.SMAWindow,
		"model_enabled":  s.Config.Model.Enabled,
		"watchlist":      s.watchlistSymbols(),
	})
}

// -----------------------------------------------------------------------------

func (s *InsightServer) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"connections":   s.connectionCount(),
		"recent_events": s.recent.Size(),
		"service":       s.Analyzer.Status(),
	})
}
