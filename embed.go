package basetrader

import (
	"embed"
	"io/fs"
	"path/filepath"
)

// StaticFiles 嵌入的前端静态文件
//
//go:embed web/dist/*
var StaticFiles embed.FS

// GetStaticFS 获取静态文件系统，返回 web/dist 子目录
func GetStaticFS() (fs.FS, error) {
	return fs.Sub(StaticFiles, "web/dist")
}

// DefaultRunStorePath 回测记录默认持久化路径
func DefaultRunStorePath(dataDir string) string {
	if dataDir == "" {
		dataDir = "data"
	}
	return filepath.Join(dataDir, "runs.json")
}
