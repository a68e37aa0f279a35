package app

import (
	"log/slog"
	"mime"
)

// assetTypes are the content types the embedded static tree and exports
// depend on. Hosts without /etc/mime.types know none of them.
var assetTypes = map[string]string{
	".css": "text/css; charset=utf-8",
	".js":  "text/javascript; charset=utf-8",
	".svg": "image/svg+xml",
	".csv": "text/csv; charset=utf-8",
}

func init() {
	registerAssetTypes(slog.Default())
}

func registerAssetTypes(logger *slog.Logger) {
	for ext, typ := range assetTypes {
		if mime.TypeByExtension(ext) != "" {
			continue
		}
		if err := mime.AddExtensionType(ext, typ); err != nil {
			logger.Warn("register mime type", slog.String("ext", ext), slog.Any("error", err))
		}
	}
}
