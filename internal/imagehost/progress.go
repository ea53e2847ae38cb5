package imagehost

import "io"

// progressReader counts bytes as the HTTP client drains the file and reports
// the running total to the request's ProgressFunc.
type progressReader struct {
	r    io.Reader
	sent int64
	fn   ProgressFunc
}

func newProgressReader(r io.Reader, fn ProgressFunc) io.Reader {
	if fn == nil {
		return r
	}
	return &progressReader{r: r, fn: fn}
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.sent += int64(n)
		p.fn(p.sent)
	}
	return n, err
}
