// Package connection 管理資料庫連線的生命週期。
//
// Guard 延遲建立連線：第一個需要資料庫的請求觸發連線，同時到達的請求共用
// 同一次嘗試的結果。連線建立後由 Monitor 定期 ping，失敗時轉回
// Disconnected，下一個請求會重新連線。
package connection
