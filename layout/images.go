package layout

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/ByLCY/invoicecanvas/binding"
	"github.com/ByLCY/invoicecanvas/invoice"
)

// logoSources 是指向快照 logo 的图片来源写法。
var logoSources = map[string]bool{
	"logo":              true,
	"{{logo}}":          true,
	"{{business.logo}}": true,
	"{{business_logo}}": true,
	"snapshot:logo":     true,
}

// FileLoader 从磁盘读取图片，相对路径基于 BaseDir。
type FileLoader struct {
	BaseDir string
}

var _ ImageLoader = FileLoader{}

// LoadImage implements ImageLoader.
func (l FileLoader) LoadImage(src string) ([]byte, error) {
	path := src
	if !filepath.IsAbs(path) {
		if l.BaseDir == "" {
			return nil, fmt.Errorf("未指定资源目录时不允许直接使用路径：%s", src)
		}
		path = filepath.Join(l.BaseDir, path)
	}
	return os.ReadFile(path)
}

// loadImage 解析图片来源并解码。失败时返回错误，由调用方降级为只画背景。
func loadImage(src string, snap *invoice.Snapshot, loader ImageLoader) (image.Image, string, error) {
	src = strings.TrimSpace(src)
	var data []byte
	var err error
	switch {
	case logoSources[strings.ToLower(strings.ReplaceAll(src, " ", ""))]:
		if snap == nil || snap.Logo.Empty() {
			return nil, src, errors.New("快照中没有 logo")
		}
		if len(snap.Logo.Bytes) > 0 {
			data = snap.Logo.Bytes
			break
		}
		src = snap.Logo.Path
		data, err = readImage(src, loader)
	default:
		src = binding.Snapshot(src, snap)
		if src == "" || strings.Contains(src, "{{") {
			return nil, src, fmt.Errorf("图片来源 %q 无法解析", src)
		}
		data, err = readImage(src, loader)
	}
	if err != nil {
		return nil, src, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, src, fmt.Errorf("解码图片 %s 失败: %w", src, err)
	}
	return img, src, nil
}

func readImage(src string, loader ImageLoader) ([]byte, error) {
	if loader == nil {
		return nil, fmt.Errorf("没有可用的图片加载器: %s", src)
	}
	data, err := loader.LoadImage(src)
	if err != nil {
		return nil, fmt.Errorf("读取图片 %s 失败: %w", src, err)
	}
	return data, nil
}

// fitImage 等比缩放图片并在 box 内居中。
func fitImage(img image.Image, box Rect) (Rect, bool) {
	b := img.Bounds()
	iw, ih := float64(b.Dx()), float64(b.Dy())
	if iw <= 0 || ih <= 0 || box.Width <= 0 || box.Height <= 0 {
		return Rect{}, false
	}
	k := box.Width / iw
	if alt := box.Height / ih; alt < k {
		k = alt
	}
	w, h := iw*k, ih*k
	return Rect{X: box.X + (box.Width-w)/2, Y: box.Y + (box.Height-h)/2, Width: w, Height: h}, true
}
