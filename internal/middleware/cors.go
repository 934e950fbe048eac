package middleware

import "net/http"

// 本服务的路由只用到这三种方法，预检响应允许浏览器缓存10分钟
const (
	corsAllowOrigin  = "http://localhost:3000"
	corsAllowMethods = "GET, POST, DELETE, OPTIONS"
	corsAllowHeaders = "Content-Type, Authorization"
	corsMaxAge       = "600"
)

// CORSMiddleware 处理CORS跨域请求
func CORSMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", corsAllowOrigin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Vary", "Origin")

		// 预检请求直接应答，不进入业务处理
		if r.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			h.Set("Access-Control-Max-Age", corsMaxAge)
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

// WithCORS 为处理器添加CORS中间件
func WithCORS(handler http.HandlerFunc) http.HandlerFunc {
	return CORSMiddleware(handler)
}
