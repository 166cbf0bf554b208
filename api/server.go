package main

import (
	"encoding/base64"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/garyburd/redigo/redis"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/bbernhard/radiology-playground/analysis"
	"github.com/bbernhard/radiology-playground/commons"
	"github.com/bbernhard/radiology-playground/datastructures"
	"github.com/bbernhard/radiology-playground/inference"
	"github.com/bbernhard/radiology-playground/render"
)

type Server struct {
	cfg       commons.Config
	redisPool *redis.Pool
	sessions  *SessionStore
}

func NewServer(cfg commons.Config, redisPool *redis.Pool) *Server {
	return &Server{
		cfg:       cfg,
		redisPool: redisPool,
		sessions:  NewSessionStore(cfg.Policy, cfg.API.SessionTTL),
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Requested-With, X-PINGOTHER, X-File-Name, Cache-Control")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Location")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatusJSON(http.StatusOK, struct{}{})
			return
		}
		c.Next()
	}
}

func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), cors())
	if !s.cfg.Release {
		router.Use(gin.Logger())
	}

	v1 := router.Group("/v1")
	v1.OPTIONS("/*path", func(c *gin.Context) {})
	v1.POST("/analysis", s.createAnalysis)
	v1.POST("/analysis/:uuid/image", s.reanalyze)
	v1.GET("/analysis/:uuid", s.getAnalysis)
	v1.POST("/analysis/:uuid/select", s.selectLabel)
	v1.POST("/analysis/:uuid/expanded", s.toggleExpanded)
	v1.POST("/analysis/:uuid/scroll", s.scroll)
	v1.GET("/analysis/:uuid/radar", s.radar)
	v1.DELETE("/analysis/:uuid", s.closeAnalysis)
	return router
}

func (s *Server) readImage(c *gin.Context) ([]byte, bool) {
	file, _, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Picture is missing"})
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.API.MaxUploadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Couldn't read picture"})
		return nil, false
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Picture is empty"})
		return nil, false
	}
	if int64(len(data)) > s.cfg.API.MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Picture is too large"})
		return nil, false
	}
	return data, true
}

// start queues the analysis of image for session id. A request that was still
// outstanding gets cancelled, its result would be stale anyway.
func (s *Server) start(c *gin.Context, id string, image []byte) {
	requestId, err := newId()
	if err != nil {
		log.Debug("[Analysis] Couldn't create request id: ", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Couldn't accept request - please try again later"})
		return
	}

	filename := filepath.Join(s.cfg.API.PredictionsDir, requestId)
	if err := os.WriteFile(filename, image, 0644); err != nil {
		log.Debug("[Analysis] Couldn't save picture: ", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Couldn't accept request - please try again later"})
		return
	}

	redisConn := s.redisPool.Get()
	defer redisConn.Close()

	found, err := s.sessions.With(id, func(session *analysis.Session) error {
		if session.State() == analysis.StateLoading {
			if err := commons.Cancel(redisConn, session.RequestID()); err != nil {
				log.Debug("[Analysis] ", err.Error())
			}
		}
		if err := session.Begin(requestId, base64.StdEncoding.EncodeToString(image)); err != nil {
			return err
		}

		err := commons.Enqueue(redisConn, datastructures.AnalysisRequest{
			Uuid:      requestId,
			SessionId: id,
			Filename:  filename,
			Created:   time.Now().Unix(),
		})
		if err != nil {
			session.Fail(requestId, analysis.FetchFailed(err, "couldn't queue analysis"))
		}
		return err
	})
	if !found {
		os.Remove(filename)
		c.JSON(http.StatusNotFound, gin.H{"error": "Analysis session not found"})
		return
	}
	if err != nil {
		os.Remove(filename)
		commons.ReportError(err, map[string]string{"session": id})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Couldn't accept request - please try again later"})
		return
	}

	c.Writer.Header().Set("Location", id)
	c.JSON(http.StatusAccepted, gin.H{"request_id": requestId})
}

func (s *Server) createAnalysis(c *gin.Context) {
	image, ok := s.readImage(c)
	if !ok {
		return
	}

	id, err := s.sessions.Create()
	if err != nil {
		log.Debug("[Analysis] Couldn't create session: ", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Couldn't accept request - please try again later"})
		return
	}
	s.start(c, id, image)
}

func (s *Server) reanalyze(c *gin.Context) {
	image, ok := s.readImage(c)
	if !ok {
		return
	}
	s.start(c, c.Param("uuid"), image)
}

// collect moves a finished worker result into the session. Stale results are
// dropped by the session itself.
func (s *Server) collect(session *analysis.Session) {
	if session.State() != analysis.StateLoading {
		return
	}

	redisConn := s.redisPool.Get()
	defer redisConn.Close()

	requestId := session.RequestID()
	res, ok, err := commons.TakeResult(redisConn, requestId)
	if err != nil {
		log.Debug("[Analysis] Couldn't check status of request: ", err.Error())
		return
	}
	if !ok {
		return
	}

	if res.Error != nil {
		session.Fail(requestId, resultError(res.Error))
		return
	}

	set, err := inference.ToPredictionSet(res.Result)
	if err != nil {
		shape, _ := analysis.ShapeOf(err)
		commons.ReportError(err, map[string]string{"request": requestId, "shape": shape.String()})
		session.Fail(requestId, err)
		return
	}
	session.Load(requestId, set)
}

func resultError(e *datastructures.AnalysisResultError) error {
	if e.Kind == datastructures.ErrorKindInvalidPredictionSet {
		return &analysis.InvalidPredictionSetError{Reason: e.Message}
	}
	return analysis.FetchFailed(errors.New(e.Message), "")
}

// withSession looks up the session of the request, collects a pending result and
// runs fn. It answers 404 for unknown sessions; otherwise fn writes the response.
func (s *Server) withSession(c *gin.Context, fn func(*analysis.Session)) {
	found, _ := s.sessions.With(c.Param("uuid"), func(session *analysis.Session) error {
		s.collect(session)
		fn(session)
		return nil
	})
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Analysis session not found"})
	}
}

func (s *Server) getAnalysis(c *gin.Context) {
	s.withSession(c, func(session *analysis.Session) {
		c.JSON(http.StatusOK, session.Present())
	})
}

// interactionError maps errors of the three ui events to responses. Invalid
// selections mean the view and the data desynchronized: loud in debug mode, a
// reported no-op in release mode.
func (s *Server) interactionError(c *gin.Context, session *analysis.Session, err error) {
	switch {
	case errors.Is(err, analysis.ErrNotReady):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "state": session.State()})
	case errors.Is(err, analysis.ErrInvalidSelection) && s.cfg.Release:
		commons.ReportError(err, map[string]string{"session": c.Param("uuid")})
		c.JSON(http.StatusOK, session.Present())
	case errors.Is(err, analysis.ErrInvalidSelection):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) selectLabel(c *gin.Context) {
	var req datastructures.SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "label is missing"})
		return
	}

	s.withSession(c, func(session *analysis.Session) {
		if err := session.Select(req.Label); err != nil {
			s.interactionError(c, session, err)
			return
		}
		c.JSON(http.StatusOK, session.Present())
	})
}

func (s *Server) toggleExpanded(c *gin.Context) {
	s.withSession(c, func(session *analysis.Session) {
		if _, err := session.ToggleExpanded(); err != nil {
			s.interactionError(c, session, err)
			return
		}
		c.JSON(http.StatusOK, session.Present())
	})
}

func (s *Server) scroll(c *gin.Context) {
	var req datastructures.ScrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid viewport metrics"})
		return
	}

	s.withSession(c, func(session *analysis.Session) {
		state, err := session.OnScroll(analysis.ViewportMetrics{
			ScrollTop:    req.ScrollTop,
			ScrollHeight: req.ScrollHeight,
			ClientHeight: req.ClientHeight,
		})
		if err != nil {
			s.interactionError(c, session, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"at_bottom": state.AtBottom,
			"show_up":   state.ShowUp(),
			"show_down": state.ShowDown(),
		})
	})
}

func (s *Server) radar(c *gin.Context) {
	s.withSession(c, func(session *analysis.Session) {
		p := session.Present()
		if p.View == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "analysis not ready", "state": p.State})
			return
		}

		c.Header("Content-Type", "text/html; charset=utf-8")
		c.Status(http.StatusOK)
		if err := render.RadarHTML(c.Writer, "Predictions", p.View.Radar); err != nil {
			log.Debug("[Analysis] Couldn't render radar chart: ", err.Error())
		}
	})
}

func (s *Server) closeAnalysis(c *gin.Context) {
	pending, found := s.sessions.Remove(c.Param("uuid"))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Analysis session not found"})
		return
	}
	s.cancel(pending)
	c.JSON(http.StatusOK, gin.H{})
}

func (s *Server) cancel(requestId string) {
	if requestId == "" {
		return
	}
	redisConn := s.redisPool.Get()
	defer redisConn.Close()
	if err := commons.Cancel(redisConn, requestId); err != nil {
		log.Debug("[Analysis] ", err.Error())
	}
}
