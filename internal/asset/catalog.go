package asset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// File describes an asset available in the data directory.
type File struct {
	Name     string `json:"name" doc:"Asset file name" example:"WA_County_Boundaries.geojson"`
	Size     string `json:"size" doc:"Human-readable file size" example:"1.2 MB"`
	FileType string `json:"fileType" doc:"Asset type: GeoJSON, Stations or Raster" example:"GeoJSON"`
}

// Catalog lists the map assets in dir, sorted by name.
func Catalog(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []File{}, nil
		}
		return nil, err
	}

	files := []File{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fileType := assetType(entry.Name())
		if fileType == "" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, File{
			Name:     entry.Name(),
			Size:     formatSize(info.Size()),
			FileType: fileType,
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func assetType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".geojson":
		return "GeoJSON"
	case ".json":
		return "Stations"
	case ".png":
		return "Raster"
	}
	return ""
}

// formatSize returns a human-readable file size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
