// Package api exposes the capture session to the admin dashboard over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vincent-vinf/go-jsend"
	"go.uber.org/zap"

	"gesture-capture/pkg/capture"
	"gesture-capture/pkg/ov"
	"gesture-capture/pkg/stream"
	"gesture-capture/pkg/utils"
	"gesture-capture/pkg/utils/ps"
)

// Controller is the part of a capture.Session the routes drive.
type Controller interface {
	Activate()
	Deactivate()
	// RetryFromFailed reports false when the session was not Failed.
	RetryFromFailed() bool
	Status() capture.Status
}

type Server struct {
	ctrl     Controller
	hub      *stream.Hub
	upgrader websocket.Upgrader
	logger   *zap.SugaredLogger
}

func New(ctrl Controller, hub *stream.Hub) *Server {
	return &Server{
		ctrl: ctrl,
		hub:  hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			// origins are enforced by the cors middleware
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: utils.GetLogger().Named("api"),
	}
}

// Router builds the gin engine serving every route.
func (s *Server) Router(origins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(utils.Cors(origins))
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, jsend.SimpleErr("page not found"))
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiRouter := r.Group("/api")
	apiRouter.GET("/host", s.host)

	sessionRouter := apiRouter.Group("/session")
	sessionRouter.GET("", s.status)
	sessionRouter.POST("/activate", s.activate)
	sessionRouter.POST("/deactivate", s.deactivate)
	sessionRouter.POST("/retry", s.retry)
	sessionRouter.GET("/frame", s.frame)
	sessionRouter.GET("/ws", s.frames)
	sessionRouter.GET("/video", s.video)

	return r
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, jsend.Success(ov.NewSession(s.ctrl.Status(), s.hub)))
}

func (s *Server) activate(c *gin.Context) {
	s.ctrl.Activate()
	s.status(c)
}

func (s *Server) deactivate(c *gin.Context) {
	s.ctrl.Deactivate()
	s.hub.Reset()
	s.status(c)
}

func (s *Server) retry(c *gin.Context) {
	if !s.ctrl.RetryFromFailed() {
		c.JSON(http.StatusConflict, jsend.SimpleErr("session is "+string(s.ctrl.Status().State)+", not Failed"))
		return
	}
	s.status(c)
}

func (s *Server) frame(c *gin.Context) {
	f, ok := s.hub.Latest()
	if !ok {
		c.JSON(http.StatusNotFound, jsend.SimpleErr("no frame yet"))
		return
	}
	c.JSON(http.StatusOK, jsend.Success(ov.NewFrame(f)))
}

func (s *Server) host(c *gin.Context) {
	h, err := ps.HostStatus()
	if err != nil {
		internalErr(c, err)
		return
	}
	c.JSON(http.StatusOK, jsend.Success(h))
}

func internalErr(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, jsend.SimpleErr(err.Error()))
}
