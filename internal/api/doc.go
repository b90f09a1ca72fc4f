// Package api 掛載根路徑下的所有路由。
//
// 路由只會在請求通過中間件管線（包含資料庫連線檢查）之後被呼叫，
// handler 因此可以假設資料庫已經連線。
package api
