package services

import "errors"

var (
	ErrUsernameTaken       = errors.New("username already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUserNotFound        = errors.New("user not found")
	ErrUnsupportedFileType = errors.New("only PDF reports are supported")
	ErrEmptyUpload         = errors.New("uploaded file is empty")
	ErrReportNotReady      = errors.New("report is not indexed yet")
	ErrChatUnavailable     = errors.New("report chat is not configured")
	ErrEmptyQuery          = errors.New("query is empty")
)
