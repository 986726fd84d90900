// Package batch 并发解析多份 JSON 文档
//
// 每个任务使用独立的 json.Parser 会话，由 ants 协程池调度；
// 结果按提交顺序返回，失败任务带行列号。
package batch

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/uniyakcom/yakjson/json"
)

// Job 一份待解析文档
type Job struct {
	Name string
	Data []byte
}

// Result 解析结果
//
// 成功时 Value 非 nil，用 Factory.Free 释放；失败时 Line/Column 为出错位置。
type Result struct {
	Name     string
	Value    *json.Value
	Factory  *json.Factory
	Err      error
	Line     uint
	Column   uint
	Bytes    int
	Duration time.Duration
}

// Runner 批量解析器
type Runner struct {
	pool    *ants.Pool
	opts    []json.Option
	log     logrus.FieldLogger
	metrics *Metrics
}

// Option Runner 配置项
type Option func(*Runner)

// WithParserOptions 每个会话附加的解析选项
func WithParserOptions(opts ...json.Option) Option {
	return func(r *Runner) { r.opts = append(r.opts, opts...) }
}

// WithLogger 日志（默认 logrus 标准 logger）
func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithMetrics 指标收集
func WithMetrics(m *Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// New 创建 Runner，size <= 0 时协程数为 runtime.NumCPU()
func New(size int, opts ...Option) (*Runner, error) {
	r := &Runner{log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(r)
	}
	if size <= 0 {
		size = runtime.NumCPU()
	}
	pool, err := ants.NewPool(size, ants.WithLogger(r.log))
	if err != nil {
		return nil, errors.Wrap(err, "batch: create worker pool")
	}
	r.pool = pool
	return r, nil
}

// Size 协程池容量
func (r *Runner) Size() int { return r.pool.Cap() }

// Release 关闭协程池，之后 Run 的任务全部返回提交错误
func (r *Runner) Release() { r.pool.Release() }

// Run 解析全部任务，阻塞直到完成
//
// ctx 取消后尚未开始的任务以 ctx.Err() 结束；返回值为 ctx.Err()。
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]Result, error) {
	results := make([]Result, len(jobs))
	var wg sync.WaitGroup
	for i := range jobs {
		job := jobs[i]
		res := &results[i]
		wg.Add(1)
		err := r.pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					*res = Result{Name: job.Name, Bytes: len(job.Data), Err: errors.Errorf("batch: %s: panic: %v", job.Name, p)}
					r.log.WithField("doc", job.Name).Errorf("parse panicked: %v", p)
				}
			}()
			*res = r.parse(ctx, job)
		})
		if err != nil {
			wg.Done()
			*res = Result{Name: job.Name, Bytes: len(job.Data), Err: errors.Wrapf(err, "batch: submit %s", job.Name)}
		}
	}
	wg.Wait()
	return results, ctx.Err()
}

func (r *Runner) parse(ctx context.Context, job Job) Result {
	res := Result{Name: job.Name, Bytes: len(job.Data)}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	opts := make([]json.Option, 0, len(r.opts)+2)
	opts = append(opts, json.WithErrorStream(nil), json.WithLogger(r.log.WithField("doc", job.Name)))
	opts = append(opts, r.opts...)
	p := json.NewParser(opts...)
	defer p.Close()

	start := time.Now()
	v, err := p.Parse(job.Data)
	res.Duration = time.Since(start)
	res.Factory = p.Factory()
	if err != nil {
		if v != nil {
			_ = p.Factory().Free(v)
		}
		res.Line, res.Column = p.LineCol()
		res.Err = errors.Wrapf(err, "batch: %s", job.Name)
	} else {
		res.Value = v
	}
	r.metrics.observe(&res)
	return res
}

// Failed 失败的结果
func Failed(results []Result) []Result {
	var out []Result
	for _, res := range results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}
