package cinder

import (
	"goflare.io/cinder/internal/config"
	"goflare.io/cinder/internal/protocol"
	"goflare.io/cinder/internal/server"
)

var (
	// ErrServerClosed 伺服器已關閉
	ErrServerClosed = server.ErrServerClosed
	// ErrFrameTooLarge 單行超過 MaxFrameSize，連線被關閉
	ErrFrameTooLarge = protocol.ErrFrameTooLarge
	// ErrConnectionReset 對端關閉連線
	ErrConnectionReset = protocol.ErrConnectionReset

	ErrShardCountZero     = config.ErrShardCountZero
	ErrInvalidFrameSize   = config.ErrInvalidFrameSize
	ErrInvalidBufferSize  = config.ErrInvalidBufferSize
	ErrInvalidBloomConfig = config.ErrInvalidBloomConfig
	ErrEmptyVersion       = config.ErrEmptyVersion
)
