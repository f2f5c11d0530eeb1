package domain

import "errors"

// 核心錯誤分類。呼叫端用 errors.Is 判斷。
var (
	// ErrValidation 輸入缺失或格式錯誤，不產生任何部分寫入
	ErrValidation = errors.New("validation error")
	// ErrAuth 未認證或未授權，連線或請求被拒絕
	ErrAuth = errors.New("not authenticated")
	// ErrNotFound 引用的 user/message 不存在
	ErrNotFound = errors.New("not found")
	// ErrStoreUnavailable 後端存儲不可用，必須向上傳遞
	ErrStoreUnavailable = errors.New("store unavailable")
)
