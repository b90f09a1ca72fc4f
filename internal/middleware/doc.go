// Package middleware 提供了 HTTP 請求處理的中間件。
//
// 請求依序經過請求體解析、cookie 解析、CORS 與資料庫連線檢查，最後才交給路由。
// 資料庫尚未連線時，RequireDatabase 會先嘗試連線，失敗則直接回應 503。
// /health 不掛 RequireDatabase。
package middleware
