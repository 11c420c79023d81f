package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/colmena/internal/api/middleware"
	"github.com/d60-Lab/colmena/pkg/response"
	"github.com/d60-Lab/colmena/pkg/storage"
)

// UploadImage 上传帖子图片，记录上传者；只有上传者能在帖子中引用
// @Summary 上传图片（jpeg/png/gif/webp）
// @Tags 帖子
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "图片"
// @Success 201 {object} response.Response{data=map[string]interface{}}
// @Failure 422 {object} response.Response
// @Router /api/v1/uploads [post]
func (h *Handler) UploadImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+1<<20)
	fh, err := c.FormFile("image")
	if err != nil {
		response.ValidationFailed(c, map[string]string{"image": "is required"})
		return
	}
	if fh.Size > h.maxUpload {
		response.ValidationFailed(c, map[string]string{"image": "is too large"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	defer f.Close()

	// 以内容嗅探为准，不信任客户端声明的类型
	head := make([]byte, 512)
	n, _ := f.Read(head)
	if _, err := f.Seek(0, 0); err != nil {
		response.InternalError(c, err)
		return
	}
	url, err := h.uploads.Upload(c.Request.Context(), middleware.Identifier(c), http.DetectContentType(head[:n]), f)
	if errors.Is(err, storage.ErrUnsupportedType) {
		response.ValidationFailed(c, map[string]string{"image": "must be jpeg, png, gif or webp"})
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, gin.H{"image_url": url})
}
