/*
 * @module api/controllers/response
 * @description 统一API响应结构和渲染辅助函数
 * @architecture RESTful API架构 - 控制器层
 * @documentReference ai_docs/cleaning_pipeline_design.md
 * @stateFlow 业务结果 -> 统一响应封装 -> JSON渲染
 * @rules status为0表示成功，非0为HTTP状态码；错误详情仅写日志不回传客户端
 * @dependencies github.com/go-chi/render
 * @refs api/routes.go
 */

package controllers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
)

// APIResponse 统一API响应结构
type APIResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data,omitempty"`

	httpStatus int
}

// PaginatedResponse 分页响应结构
type PaginatedResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data"`
	Total  int64       `json:"total" example:"100"`
	Page   int         `json:"page" example:"1"`
	Size   int         `json:"size" example:"10"`
}

// Render 实现render.Renderer接口
func (res *APIResponse) Render(w http.ResponseWriter, r *http.Request) error {
	status := res.httpStatus
	if status == 0 {
		status = http.StatusOK
	}
	render.Status(r, status)
	return nil
}

// SuccessResponse 成功响应
func SuccessResponse(msg string, data interface{}) *APIResponse {
	if msg == "" {
		msg = "操作成功"
	}
	return &APIResponse{Status: 0, Msg: msg, Data: data}
}

// ErrorResponse 错误响应，err仅记录日志不回传
func ErrorResponse(httpStatus int, msg string, err error) *APIResponse {
	if err != nil {
		slog.Error(msg, "error", err)
	}
	return &APIResponse{Status: httpStatus, Msg: msg, httpStatus: httpStatus}
}

// NotFoundResponse 资源不存在响应
func NotFoundResponse(msg string) *APIResponse {
	return ErrorResponse(http.StatusNotFound, msg, nil)
}

// InternalErrorResponse 服务内部错误响应
func InternalErrorResponse(msg string, err error) *APIResponse {
	return ErrorResponse(http.StatusInternalServerError, msg, err)
}
