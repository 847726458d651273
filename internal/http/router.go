package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口（静态文件等）
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterSensorDataRoutes 注册读数查询路由
func (r *Router) RegisterSensorDataRoutes(h *SensorDataHandler) {
	r.Handle("/api/v1/sensor_data/latest", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.GetLatest(w, req)
	})

	r.Handle("/api/v1/sensor_data/history", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.GetHistory(w, req)
	})
}

// RegisterAlertRoutes 注册报警路由
func (r *Router) RegisterAlertRoutes(h *AlertsHandler) {
	r.Handle("/api/v1/alerts/active", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.GetActive(w, req)
	})

	// PUT /api/v1/alerts/{id}/resolve
	r.Handle("/api/v1/alerts/", func(w http.ResponseWriter, req *http.Request) {
		if !strings.HasSuffix(req.URL.Path, "/resolve") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if req.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Resolve(w, req)
	})
}

// RegisterThresholdRoutes 注册阈值路由
func (r *Router) RegisterThresholdRoutes(h *ThresholdsHandler) {
	r.Handle("/api/v1/thresholds", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.List(w, req)
	})

	// PUT /api/v1/thresholds/{name}
	r.Handle("/api/v1/thresholds/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Update(w, req)
	})
}

// RegisterHealthRoute 注册探活路由（报告存储就绪状态）
func (r *Router) RegisterHealthRoute(gate Gate) {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if !gate.Ready() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "database": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "database": true})
	})
}

// RegisterStaticRoutes 注册 dashboard 静态页面
func (r *Router) RegisterStaticRoutes(webDir string) {
	r.HandleHandler("/", http.FileServer(http.Dir(webDir)))
}
