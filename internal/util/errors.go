package util

import "errors"

var (
	ErrUserNotFound       = errors.New("用户不存在")
	ErrEmailRegistered    = errors.New("该邮箱已被注册")
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrPaymentRequired    = errors.New("free tier limit reached, upgrade required")
	ErrPaperNotFound      = errors.New("paper not found")
	ErrAttemptNotFound    = errors.New("attempt not found")
	ErrAttemptFinished    = errors.New("attempt already submitted or expired")
	ErrAttemptNotFinished = errors.New("attempt not submitted yet")
	ErrBadQuestionIndex   = errors.New("question index out of range")
	ErrEmptyQuestionSet   = errors.New("question source returned no questions")
	ErrQuestionSourceDown = errors.New("question source unavailable")
	ErrInvalidSourceRef   = errors.New("invalid source reference")
)
