package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"plantmerge/internal/consolidator"
	"plantmerge/internal/profile"
	"plantmerge/internal/store"
	"plantmerge/internal/workbook"
)

// UploadField 上传文件的表单字段
const UploadField = "files"

// Handlers HTTP 处理器
type Handlers struct {
	engine    *consolidator.Engine
	store     *store.Store
	logger    *zap.Logger
	startedAt time.Time
}

// NewHandlers 创建处理器；st 为 nil 时不记录历史
func NewHandlers(engine *consolidator.Engine, st *store.Store, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		engine:    engine,
		store:     st,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Response 通用 JSON 响应
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, Response{
		Code:    status,
		Message: message,
	})
}

// ==================== 页面 ====================

type plantLink struct {
	ID    profile.PlantID
	Title string
}

var plantLinks = []plantLink{
	{ID: profile.PlantKunshan, Title: "昆山 Kunshan"},
	{ID: profile.PlantAnhui, Title: "安徽 Anhui"},
	{ID: profile.PlantCustom, Title: "自定义 Custom"},
}

func plantTitle(id profile.PlantID) string {
	for _, p := range plantLinks {
		if p.ID == id {
			return p.Title
		}
	}
	return string(id)
}

// UploadPage 上传页面
// GET /、/kunshan、/anhui、/custom
func (h *Handlers) UploadPage(plant profile.PlantID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, "upload.html", gin.H{
			"Plant":           plant,
			"Title":           plantTitle(plant),
			"Plants":          plantLinks,
			"NeedsSheetNames": plant == profile.PlantCustom,
		})
	}
}

// ==================== 合并 ====================

// Consolidate 固定工厂路由的合并
// POST /、/kunshan、/anhui、/custom
func (h *Handlers) Consolidate(plant profile.PlantID) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.consolidate(c, plant)
	}
}

// ConsolidatePlant 按路径参数选择工厂
// POST /api/consolidate/:plant
func (h *Handlers) ConsolidatePlant(c *gin.Context) {
	h.consolidate(c, profile.PlantID(c.Param("plant")))
}

func (h *Handlers) consolidate(c *gin.Context, plant profile.PlantID) {
	form, err := c.MultipartForm()
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorResponse(c, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		errorResponse(c, http.StatusBadRequest, "invalid multipart form")
		return
	}

	prof, err := profile.Lookup(plant, formValue(c, form, "sheet_names"), formValue(c, form, "new_sheet_names"))
	if err != nil {
		h.writeConfigError(c, err)
		return
	}

	files, err := readUploads(form)
	if err != nil {
		h.logger.Warn("读取上传文件失败", zap.Error(err))
		errorResponse(c, http.StatusBadRequest, "failed to read uploaded files")
		return
	}

	res, err := h.engine.Consolidate(files, prof)
	if err != nil {
		h.writeConfigError(c, err)
		return
	}

	h.recordRun(res)

	c.Header("X-Run-ID", res.Report.RunID)
	c.Header("Content-Disposition", contentDisposition(res.Filename))
	c.Data(http.StatusOK, workbook.ContentType, res.Workbook)
}

func (h *Handlers) writeConfigError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, profile.ErrSheetNamesRequired):
		errorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, profile.ErrUnknownPlant):
		errorResponse(c, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("合并失败", zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, "consolidation failed")
	}
}

// recordRun 写入历史；失败只记录日志，不影响响应
func (h *Handlers) recordRun(res *consolidator.Result) {
	if h.store == nil {
		return
	}
	if err := h.store.SaveRun(res.Report, res.Filename); err != nil {
		h.logger.Warn("保存运行记录失败", zap.String("run_id", res.Report.RunID), zap.Error(err))
	}
}

func formValue(c *gin.Context, form *multipart.Form, key string) string {
	if form != nil {
		if values := form.Value[key]; len(values) > 0 {
			return values[0]
		}
		return ""
	}
	return c.PostForm(key)
}

// readUploads 按上传顺序读取文件内容
func readUploads(form *multipart.Form) ([]consolidator.InputFile, error) {
	if form == nil {
		return nil, nil
	}
	headers := form.File[UploadField]
	files := make([]consolidator.InputFile, 0, len(headers))
	for _, fh := range headers {
		// 浏览器未选择文件时会提交空的文件域
		if fh.Filename == "" && fh.Size == 0 {
			continue
		}
		content, err := readUpload(fh)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fh.Filename, err)
		}
		files = append(files, consolidator.InputFile{Filename: fh.Filename, Content: content})
	}
	return files, nil
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// contentDisposition 附件下载头（同时提供 RFC 5987 编码的文件名）
func contentDisposition(filename string) string {
	return fmt.Sprintf("attachment; filename=%q; filename*=UTF-8''%s", filename, url.PathEscape(filename))
}

// ==================== 历史与状态 ====================

// ListRuns 最近的合并记录
// GET /api/runs?limit=20
func (h *Handlers) ListRuns(c *gin.Context) {
	if h.store == nil {
		errorResponse(c, http.StatusServiceUnavailable, "run history disabled")
		return
	}

	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errorResponse(c, http.StatusBadRequest, "invalid limit")
			return
		}
		if n > 200 {
			n = 200
		}
		limit = n
	}

	runs, err := h.store.ListRuns(limit)
	if err != nil {
		h.logger.Error("查询运行记录失败", zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, "failed to list runs")
		return
	}
	success(c, runs)
}

// GetRun 单次合并记录及逐 sheet 结果
// GET /api/runs/:id
func (h *Handlers) GetRun(c *gin.Context) {
	if h.store == nil {
		errorResponse(c, http.StatusServiceUnavailable, "run history disabled")
		return
	}

	run, err := h.store.GetRun(c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			errorResponse(c, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("查询运行记录失败", zap.String("run_id", c.Param("id")), zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, "failed to get run")
		return
	}
	success(c, run)
}

// StatusResponse 服务状态
type StatusResponse struct {
	Status         string            `json:"status"`
	Plants         []profile.PlantID `json:"plants"`
	HistoryEnabled bool              `json:"historyEnabled"`
	StartedAt      time.Time         `json:"startedAt"`
	UptimeSeconds  int64             `json:"uptimeSeconds"`
}

// GetStatus 服务状态
// GET /api/status
func (h *Handlers) GetStatus(c *gin.Context) {
	success(c, StatusResponse{
		Status:         "ok",
		Plants:         profile.Plants,
		HistoryEnabled: h.store != nil,
		StartedAt:      h.startedAt,
		UptimeSeconds:  int64(time.Since(h.startedAt).Seconds()),
	})
}
