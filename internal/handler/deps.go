package handler

import (
	"campusconnect/internal/app/chat"
	"campusconnect/internal/app/db"
	"campusconnect/internal/app/storage"
	"campusconnect/internal/configs"
	"campusconnect/internal/pkg/pow"
)

// AppDeps bundles the shared dependencies injected into every handler.
type AppDeps struct {
	Manager        *chat.Manager
	Config         *configs.AppConfig
	StorageService storage.StorageService
	DB             *db.Queries
	PoW            *pow.PoWManager
}
