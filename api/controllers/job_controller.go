/*
 * @module api/controllers/job_controller
 * @description 清洗任务控制器，提供文件上传、任务启动、状态查询、结果下载和任务列表API
 * @architecture RESTful API架构 - 控制器层
 * @documentReference ai_docs/cleaning_pipeline_design.md
 * @stateFlow HTTP请求 -> 任务服务调用 -> 统一响应返回
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式；仅接受CSV文件上传
 * @dependencies datacleaner-service/service, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/jobs/job_service.go
 */

package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"datacleaner-service/service"
	"datacleaner-service/service/jobs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"gorm.io/gorm"
)

// 上传文件大小上限 100MB
const maxUploadBytes = 100 << 20

// JobController 清洗任务控制器
type JobController struct {
	jobService *jobs.JobService
}

// NewJobController 创建任务控制器实例
func NewJobController() *JobController {
	return &JobController{
		jobService: service.GlobalJobService,
	}
}

// Upload 上传数据文件
// @Summary 上传CSV文件
// @Description 上传待清洗的CSV文件并创建清洗任务
// @Tags 清洗任务
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV文件"
// @Success 200 {object} APIResponse{data=models.CleaningJob}
// @Failure 400 {object} APIResponse
// @Router /api/v1/upload [post]
func (c *JobController) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "解析上传表单失败", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "缺少file字段", err))
		return
	}
	defer file.Close()

	job, err := c.jobService.CreateJob(header.Filename, file)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "文件上传失败: "+err.Error(), err))
		return
	}
	render.Render(w, r, SuccessResponse("文件上传成功", job))
}

// Process 启动清洗任务
// @Summary 启动清洗
// @Description 对已上传的任务启动异步清洗流水线
// @Tags 清洗任务
// @Produce json
// @Param job_id path string true "任务ID"
// @Success 200 {object} APIResponse{data=models.CleaningJob}
// @Failure 404 {object} APIResponse
// @Failure 409 {object} APIResponse
// @Router /api/v1/process/{job_id} [post]
func (c *JobController) Process(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := c.jobService.ProcessJob(jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			render.Render(w, r, NotFoundResponse("任务不存在: "+jobID))
			return
		}
		render.Render(w, r, ErrorResponse(http.StatusConflict, err.Error(), err))
		return
	}
	render.Render(w, r, SuccessResponse("清洗任务已启动", job))
}

// Status 查询任务状态
// @Summary 查询任务状态
// @Description 查询任务的状态、进度、当前阶段和最终报告
// @Tags 清洗任务
// @Produce json
// @Param job_id path string true "任务ID"
// @Success 200 {object} APIResponse{data=models.CleaningJob}
// @Failure 404 {object} APIResponse
// @Router /api/v1/status/{job_id} [get]
func (c *JobController) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := c.jobService.GetJob(jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			render.Render(w, r, NotFoundResponse("任务不存在: "+jobID))
			return
		}
		render.Render(w, r, InternalErrorResponse("查询任务失败", err))
		return
	}
	render.Render(w, r, SuccessResponse("", job))
}

// DownloadCSV 下载清洗结果文件
// @Summary 下载清洗后的CSV
// @Description 下载已完成任务的清洗结果文件
// @Tags 清洗任务
// @Produce text/csv
// @Param job_id path string true "任务ID"
// @Success 200 {file} file "清洗后的CSV文件"
// @Failure 404 {object} APIResponse
// @Router /api/v1/download/{job_id}/csv [get]
func (c *JobController) DownloadCSV(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	path, downloadName, err := c.jobService.OutputFile(jobID)
	if err != nil {
		render.Render(w, r, NotFoundResponse("清洗结果不可用: "+err.Error()))
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadName))
	http.ServeFile(w, r, path)
}

// DownloadReport 下载清洗报告
// @Summary 下载清洗报告
// @Description 获取已完成任务的完整清洗报告JSON
// @Tags 清洗任务
// @Produce json
// @Param job_id path string true "任务ID"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /api/v1/download/{job_id}/report [get]
func (c *JobController) DownloadReport(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := c.jobService.GetJob(jobID)
	if err != nil {
		render.Render(w, r, NotFoundResponse("任务不存在: "+jobID))
		return
	}
	if len(job.FinalReport) == 0 {
		render.Render(w, r, NotFoundResponse("任务尚无清洗报告: "+jobID))
		return
	}
	render.Render(w, r, SuccessResponse("", job.FinalReport))
}

// List 任务列表
// @Summary 任务列表
// @Description 按创建时间倒序分页查询清洗任务
// @Tags 清洗任务
// @Produce json
// @Param page query int false "页码" default(1)
// @Param size query int false "每页数量" default(20)
// @Success 200 {object} PaginatedResponse{data=[]models.CleaningJob}
// @Router /api/v1/jobs [get]
func (c *JobController) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	page, size = jobs.NormalizePagination(page, size)

	jobList, total, err := c.jobService.ListJobs(page, size)
	if err != nil {
		render.Render(w, r, InternalErrorResponse("查询任务列表失败", err))
		return
	}
	render.JSON(w, r, PaginatedResponse{
		Status: 0,
		Msg:    "操作成功",
		Data:   jobList,
		Total:  total,
		Page:   page,
		Size:   size,
	})
}
