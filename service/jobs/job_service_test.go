/*
 * @module service/jobs/job_service_test
 * @description 清洗任务服务的单元测试
 * @architecture 单元测试 - 验证任务生命周期和文件管理
 * @documentReference ai_docs/cleaning_pipeline_design.md
 * @stateFlow 测试环境初始化 -> 任务创建执行 -> 状态与产物验证
 * @rules 使用内存数据库和临时目录，不依赖外部服务
 * @dependencies testing, github.com/stretchr/testify/assert, datacleaner-service/testutil
 * @refs job_service.go
 */

package jobs

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"datacleaner-service/service/event"
	"datacleaner-service/service/models"
	"datacleaner-service/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "name,age,salary\nalice,30,50000\nbob,25,48000\ncarol,35,62000\ndave,28,51000\n"

func newTestJobService(t *testing.T) (*JobService, *testutil.TestDB) {
	t.Helper()
	t.Setenv("UPLOAD_DIR", t.TempDir())
	t.Setenv("OUTPUT_DIR", t.TempDir())

	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)

	svc, err := NewJobService(tdb.DB, event.NewEventService(), nil)
	require.NoError(t, err)
	return svc, tdb
}

func TestJobService_CreateJob(t *testing.T) {
	svc, _ := newTestJobService(t)

	job, err := svc.CreateJob("data.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, models.JobStatusUploaded, job.Status)
	assert.Equal(t, 4, job.RowCount)
	assert.Equal(t, 3, job.ColumnCount)

	_, err = os.Stat(job.UploadPath)
	assert.NoError(t, err, "上传文件应落盘")
}

func TestJobService_CreateJob_RejectsNonCSV(t *testing.T) {
	svc, _ := newTestJobService(t)

	_, err := svc.CreateJob("data.txt", strings.NewReader(sampleCSV))
	assert.Error(t, err)
}

func TestJobService_CreateJob_RejectsMalformedCSV(t *testing.T) {
	svc, tdb := newTestJobService(t)

	_, err := svc.CreateJob("bad.csv", strings.NewReader("a,b\n\"unclosed,1\n"))
	assert.Error(t, err)

	var count int64
	tdb.DB.Model(&models.CleaningJob{}).Count(&count)
	assert.Zero(t, count, "解析失败不应留下任务记录")
}

func TestJobService_ProcessJob_Completes(t *testing.T) {
	svc, _ := newTestJobService(t)

	job, err := svc.CreateJob("data.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)

	_, err = svc.ProcessJob(job.ID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		current, err := svc.GetJob(job.ID)
		return err == nil && current.Status == models.JobStatusCompleted
	}, 10*time.Second, 50*time.Millisecond, "任务应在流水线结束后进入completed")

	finished, err := svc.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, finished.Progress)
	assert.NotEmpty(t, finished.FinalReport)
	assert.NotNil(t, finished.FinishedAt)

	path, downloadName, err := svc.OutputFile(job.ID)
	require.NoError(t, err)
	assert.Equal(t, "data_cleaned.csv", downloadName)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "name,age,salary")
}

func TestJobService_ProcessJob_Conflicts(t *testing.T) {
	svc, _ := newTestJobService(t)

	_, err := svc.ProcessJob("no-such-job")
	assert.Error(t, err)

	job, err := svc.CreateJob("data.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)
	_, err = svc.ProcessJob(job.ID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		current, _ := svc.GetJob(job.ID)
		return current != nil && current.Status == models.JobStatusCompleted
	}, 10*time.Second, 50*time.Millisecond)

	_, err = svc.ProcessJob(job.ID)
	assert.Error(t, err, "已完成的任务不应重复执行")
}

func TestJobService_ListJobs(t *testing.T) {
	svc, _ := newTestJobService(t)

	for i := 0; i < 3; i++ {
		_, err := svc.CreateJob("data.csv", strings.NewReader(sampleCSV))
		require.NoError(t, err)
	}

	jobs, total, err := svc.ListJobs(1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, jobs, 2)

	// 非法分页参数收敛到默认值后应返回全部3条
	all, total, err := svc.ListJobs(0, -5)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, all, 3)
}

func TestNormalizePagination(t *testing.T) {
	cases := []struct {
		name               string
		page, size         int
		wantPage, wantSize int
	}{
		{"零值取默认", 0, 0, 1, 20},
		{"负值取默认", -1, -5, 1, 20},
		{"超上限回落默认", 2, 500, 2, 20},
		{"有效值原样保留", 3, 50, 3, 50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page, size := NormalizePagination(tc.page, tc.size)
			assert.Equal(t, tc.wantPage, page)
			assert.Equal(t, tc.wantSize, size)
		})
	}
}

func TestJobService_CleanupExpired(t *testing.T) {
	svc, tdb := newTestJobService(t)

	job, err := svc.CreateJob("data.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)

	// 将任务回拨到保留期之前
	old := time.Now().AddDate(0, 0, -30)
	require.NoError(t, tdb.DB.Model(&models.CleaningJob{}).
		Where("id = ?", job.ID).Update("created_at", old).Error)

	deleted, err := svc.CleanupExpired(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = svc.GetJob(job.ID)
	assert.Error(t, err)
	_, err = os.Stat(job.UploadPath)
	assert.True(t, os.IsNotExist(err), "过期任务的上传文件应被删除")
}
