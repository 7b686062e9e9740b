package server

import (
	"fmt"
	"mime"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/alanbriolat/neobyte"
)

// deliver streams the result as an attachment called name. The file must stay in place until deliver returns.
func deliver(c *gin.Context, res *neobyte.Result, name string) error {
	f, err := os.Open(res.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %v", res.Path)
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": name})
	if disposition == "" {
		disposition = "attachment"
	}
	c.DataFromReader(http.StatusOK, info.Size(), res.MIMEType(), f, map[string]string{
		"Content-Disposition": disposition,
		"Cache-Control":       "no-store",
	})
	return nil
}
