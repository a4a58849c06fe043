package generator

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

type assetCopySummary struct {
	Built   int
	Skipped int
}

// copyAssets mirrors the static asset directory into the output tree,
// skipping files whose checksum matches the previous build.
func (s *service) copyAssets(
	ctx context.Context,
	writer artifactWriter,
	manifest *buildManifest,
) (assetCopySummary, error) {
	summary := assetCopySummary{}
	assetDir := strings.TrimSpace(s.cfg.AssetDir)
	if assetDir == "" {
		return summary, nil
	}
	if _, err := os.Stat(assetDir); err != nil {
		if os.IsNotExist(err) {
			return summary, nil
		}
		return summary, err
	}

	assetFS := os.DirFS(assetDir)
	err := fs.WalkDir(assetFS, ".", func(source string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		data, err := fs.ReadFile(assetFS, source)
		if err != nil {
			return err
		}
		destRel := path.Join("assets", filepath.ToSlash(source))
		checksum := computeHash(data)
		if manifest != nil && s.cfg.Incremental && manifest.shouldSkipAsset(source, checksum, destRel) {
			summary.Skipped++
			return nil
		}
		if err := writer.WriteFile(ctx, writeFileRequest{
			Path:        destRel,
			Content:     bytes.NewReader(data),
			Size:        int64(len(data)),
			Category:    categoryAsset,
			ContentType: detectAssetContentType(destRel),
			Checksum:    checksum,
			Metadata:    map[string]string{"asset": source},
		}); err != nil {
			return err
		}
		summary.Built++
		if manifest != nil {
			manifest.setAsset(manifestAsset{
				Source:   source,
				Output:   destRel,
				Checksum: checksum,
				Size:     int64(len(data)),
				CopiedAt: s.now(),
			})
		}
		return nil
	})
	return summary, err
}

func detectAssetContentType(asset string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(asset), "."))
	switch ext {
	case "html", "htm":
		return "text/html; charset=utf-8"
	case "css":
		return "text/css"
	case "js":
		return "application/javascript"
	case "json":
		return "application/json"
	case "xml":
		return "application/xml"
	case "txt":
		return "text/plain; charset=utf-8"
	case "svg":
		return "image/svg+xml"
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "ico":
		return "image/x-icon"
	case "woff":
		return "font/woff"
	case "woff2":
		return "font/woff2"
	case "pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
