package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ByLCY/invoicecanvas/invoice"
	"github.com/ByLCY/invoicecanvas/layout"
	"github.com/ByLCY/invoicecanvas/logging"
	"github.com/ByLCY/invoicecanvas/renderer"
	canvasrenderer "github.com/ByLCY/invoicecanvas/renderer/canvas"
	"github.com/ByLCY/invoicecanvas/template"
)

// config 汇总命令行参数。
type config struct {
	templatePath string
	dataPath     string
	outPath      string
	debugPath    string
	page         string
	margin       string
	assets       string
	jobs         int
}

func main() {
	var cfg config
	flag.StringVar(&cfg.templatePath, "template", "examples/invoice.json", "画布模板 JSON 路径")
	flag.StringVar(&cfg.dataPath, "data", "", "发票数据 JSON 路径（单个对象或数组）")
	flag.StringVar(&cfg.outPath, "out", "output/invoice.pdf", "PDF 输出路径；批量模式下为输出目录")
	flag.StringVar(&cfg.debugPath, "debug", "", "布局调试 JSON 输出路径")
	flag.StringVar(&cfg.page, "page", "letter", "纸张尺寸：letter/a4/legal/a5 或 宽x高（如 210mmx297mm）")
	flag.StringVar(&cfg.margin, "margin", "0.5in", "续页边距，CSS 写法 1~4 个值")
	flag.StringVar(&cfg.assets, "assets", "", "图片资源目录，默认为模板所在目录")
	flag.IntVar(&cfg.jobs, "jobs", 4, "批量渲染并发数")
	verbose := flag.Bool("v", false, "输出调试日志")
	flag.Parse()

	if *verbose {
		logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	outputs, err := run(context.Background(), cfg)
	if err != nil {
		log.Fatalf("生成 PDF 失败: %v", err)
	}
	for _, out := range outputs {
		fmt.Printf("已生成 PDF：%s\n", out)
	}
}

// run 串联模板加载、布局与渲染，返回写出的 PDF 路径。
func run(ctx context.Context, cfg config) ([]string, error) {
	doc, err := loadTemplate(cfg.templatePath)
	if err != nil {
		return nil, err
	}
	snaps, err := loadSnapshots(cfg.dataPath)
	if err != nil {
		return nil, err
	}
	opts, err := renderOptions(cfg)
	if err != nil {
		return nil, err
	}
	assets := cfg.assets
	if assets == "" {
		assets = filepath.Dir(cfg.templatePath)
	}
	r := canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{BaseDir: assets, Logger: opts.Logger})
	opts.Measurer = r
	opts.Images = r

	outputs := outputPaths(cfg.outPath, snaps)
	g, ctx := errgroup.WithContext(ctx)
	if cfg.jobs > 0 {
		g.SetLimit(cfg.jobs)
	}
	for i, snap := range snaps {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			debug := ""
			if cfg.debugPath != "" {
				debug = indexedPath(cfg.debugPath, i, len(snaps))
			}
			return renderOne(doc, snap, opts, r, outputs[i], debug)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

func loadTemplate(path string) (*template.Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开模板文件 %s: %w", path, err)
	}
	defer file.Close()

	doc, err := template.Load(file)
	if err != nil {
		return nil, fmt.Errorf("解析模板失败: %w", err)
	}
	return doc, nil
}

// loadSnapshots 未提供数据时使用空快照，便于预览模板本身。
func loadSnapshots(path string) ([]*invoice.Snapshot, error) {
	if path == "" {
		return []*invoice.Snapshot{{}}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取发票数据 %s: %w", path, err)
	}
	snaps, err := invoice.LoadBatch(data)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, fmt.Errorf("发票数据为空: %s", path)
	}
	return snaps, nil
}

func renderOptions(cfg config) (layout.RenderOptions, error) {
	opts := layout.DefaultRenderOptions()
	if cfg.page != "" {
		w, h, err := layout.PageSize(cfg.page)
		if err != nil {
			return opts, err
		}
		opts.PageWidth, opts.PageHeight = w, h
	}
	if cfg.margin != "" {
		m, ok := layout.ParseMargin(cfg.margin)
		if !ok {
			return opts, fmt.Errorf("无效的边距 %q", cfg.margin)
		}
		opts.Margin = m
	}
	opts.Logger = logging.Logger()
	return opts, nil
}

func renderOne(doc *template.Document, snap *invoice.Snapshot, opts layout.RenderOptions, r renderer.Renderer, outPath, debugPath string) error {
	result, err := layout.Render(doc, snap, opts)
	if err != nil {
		return fmt.Errorf("布局计算失败: %w", err)
	}
	if debugPath != "" {
		if err := writeDebug(result, debugPath); err != nil {
			return err
		}
	}
	pdfBytes, err := r.Render(result)
	if err != nil {
		return fmt.Errorf("渲染 PDF 失败: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(outPath, pdfBytes, 0o644); err != nil {
		return fmt.Errorf("写入 PDF 文件失败: %w", err)
	}
	return nil
}

func writeDebug(result *layout.Result, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(result, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// outputPaths 单张发票直接写到 out；多张时 out 视为目录，文件名取发票号。
func outputPaths(out string, snaps []*invoice.Snapshot) []string {
	if len(snaps) == 1 {
		return []string{out}
	}
	dir := strings.TrimSuffix(out, filepath.Ext(out))
	seen := map[string]bool{}
	paths := make([]string, len(snaps))
	for i, snap := range snaps {
		name := ""
		if snap != nil {
			name = strings.Trim(unsafeName.ReplaceAllString(snap.InvoiceNumber, "_"), "_.")
		}
		if name == "" || seen[name] {
			name = fmt.Sprintf("invoice-%03d", i+1)
		}
		seen[name] = true
		paths[i] = filepath.Join(dir, name+".pdf")
	}
	return paths
}

func indexedPath(path string, i, n int) string {
	if n <= 1 {
		return path
	}
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s-%03d%s", strings.TrimSuffix(path, ext), i+1, ext)
}
