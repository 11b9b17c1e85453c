package renderer

import "github.com/ByLCY/invoicecanvas/layout"

// Renderer 将分页结果输出为最终文件，例如 PDF。
// Render 返回生成的二进制数据以及可能的错误；没有页面时返回 layout.ErrNoPages。
type Renderer interface {
	Render(result *layout.Result) ([]byte, error)
}
