package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/uniyakcom/yakjson/batch"
	"github.com/uniyakcom/yakjson/internal/config"
	"github.com/uniyakcom/yakjson/internal/logging"
	"github.com/uniyakcom/yakjson/json"
)

// errReported 诊断已写到 stderr，退出码 1 但不再打印
var errReported = errors.New("reported")

type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string
	logFormat  string

	cfg config.Config
	log *logrus.Logger
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr}
	app := c.app()
	if _, err := app.Parse(args); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(stderr, "yakjson: %v\n", err)
		}
		return 1
	}
	return 0
}

func (c *cli) app() *kingpin.Application {
	app := kingpin.New("yakjson", "JSON parser, formatter and RFC 6901 pointer tool.")
	app.UsageWriter(c.stdout)
	app.ErrorWriter(c.stderr)
	app.Terminate(func(int) {})
	app.HelpFlag.Short('h')

	app.Flag("config", "Config file (yaml, json or toml).").Short('c').StringVar(&c.configPath)
	app.Flag("log.level", "Log level, overrides config.").StringVar(&c.logLevel)
	app.Flag("log.format", "Log format: text or json.").StringVar(&c.logFormat)
	app.PreAction(c.setup)

	addFmtCommand(app, c)
	addQueryCommand(app, c)
	addCheckCommand(app, c)
	return app
}

func (c *cli) setup(*kingpin.ParseContext) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if c.logFormat != "" {
		cfg.LogFormat = c.logFormat
	}
	l, err := logging.New(cfg.LogLevel, cfg.LogFormat, c.stderr)
	if err != nil {
		return err
	}
	c.cfg, c.log = cfg, l
	return nil
}

// read 读取文件，"-" 或空名读标准输入
func (c *cli) read(name string) ([]byte, error) {
	if name == "" || name == "-" {
		b, err := io.ReadAll(c.stdin)
		return b, errors.Wrap(err, "read stdin")
	}
	b, err := os.ReadFile(name)
	return b, errors.Wrapf(err, "read %s", name)
}

func displayName(name string) string {
	if name == "" || name == "-" {
		return "stdin"
	}
	return name
}

// parse 单文档解析，诊断按配置的模板写到 stderr
func (c *cli) parse(name string) (*json.Value, *json.Parser, error) {
	data, err := c.read(name)
	if err != nil {
		return nil, nil, err
	}
	opts := append(c.cfg.ParserOptions(),
		json.WithErrorStream(c.stderr),
		json.WithLogger(c.log.WithField("doc", name)),
	)
	p := json.NewParser(opts...)
	v, err := p.Parse(data)
	if err != nil {
		if v != nil {
			_ = p.Factory().Free(v)
		}
		p.Close()
		if errors.Is(err, json.ErrEmptyInput) {
			return nil, nil, errors.Wrap(err, displayName(name))
		}
		return nil, nil, errReported
	}
	return v, p, nil
}

func (c *cli) emit(p *json.Parser, v *json.Value, indent string, flags json.Flags) error {
	out, err := p.Stringify(v, indent, flags)
	if err != nil {
		return errors.Wrap(err, "stringify")
	}
	out = append(out, '\n')
	_, err = c.stdout.Write(out)
	return err
}

// ─── fmt ───

type fmtCommand struct {
	*cli
	file    string
	indent  string
	compact bool
	spaces  bool
	ascii   bool
	bmp     bool
}

func addFmtCommand(app *kingpin.Application, c *cli) {
	cmd := &fmtCommand{cli: c}
	fc := app.Command("fmt", "Reformat a JSON document.")
	fc.Flag("indent", "Indent string, overrides config.").StringVar(&cmd.indent)
	fc.Flag("compact", "Single-line output.").BoolVar(&cmd.compact)
	fc.Flag("spaces", "Space after ',' in compact output.").BoolVar(&cmd.spaces)
	fc.Flag("ascii", "Escape every non-ASCII code point.").BoolVar(&cmd.ascii)
	fc.Flag("escape-non-bmp", "Escape code points above U+FFFF.").BoolVar(&cmd.bmp)
	fc.Arg("file", "Input file, '-' for stdin.").StringVar(&cmd.file)
	fc.Action(cmd.run)
}

func (cmd *fmtCommand) flags() (string, json.Flags) {
	flags := cmd.cfg.Flags()
	if cmd.spaces {
		flags |= json.FlagSpaces
	}
	if cmd.ascii {
		flags |= json.FlagEscapeNonASCII
	}
	if cmd.bmp {
		flags |= json.FlagEscapeNonBMP
	}
	if cmd.compact {
		return "", flags
	}
	indent := cmd.cfg.Indent
	if cmd.indent != "" {
		indent = cmd.indent
	}
	return indent, flags | json.FlagIndent | json.FlagSpaces
}

func (cmd *fmtCommand) run(*kingpin.ParseContext) error {
	v, p, err := cmd.parse(cmd.file)
	if err != nil {
		return err
	}
	defer p.Close()
	defer p.Factory().Free(v)

	indent, flags := cmd.flags()
	return cmd.emit(p, v, indent, flags)
}

// ─── query ───

type queryCommand struct {
	*cli
	pointer string
	file    string
	raw     bool
}

func addQueryCommand(app *kingpin.Application, c *cli) {
	cmd := &queryCommand{cli: c}
	qc := app.Command("query", "Resolve an RFC 6901 JSON pointer.")
	qc.Flag("raw", "Print strings without quotes.").Short('r').BoolVar(&cmd.raw)
	qc.Arg("pointer", "JSON pointer, e.g. /a/0/b.").Required().StringVar(&cmd.pointer)
	qc.Arg("file", "Input file, '-' for stdin.").StringVar(&cmd.file)
	qc.Action(cmd.run)
}

func (cmd *queryCommand) run(*kingpin.ParseContext) error {
	v, p, err := cmd.parse(cmd.file)
	if err != nil {
		return err
	}
	defer p.Close()
	defer p.Factory().Free(v)

	hit, err := v.Query(cmd.pointer)
	if err != nil {
		return errors.Wrapf(err, "query %q", cmd.pointer)
	}
	if cmd.raw && hit.IsString() {
		_, err = fmt.Fprintln(cmd.stdout, hit.Str())
		return err
	}
	return cmd.emit(p, hit, cmd.cfg.Indent, cmd.cfg.Flags()|json.FlagIndent|json.FlagSpaces)
}

// ─── check ───

type checkCommand struct {
	*cli
	files []string
	quiet bool
}

func addCheckCommand(app *kingpin.Application, c *cli) {
	cmd := &checkCommand{cli: c}
	cc := app.Command("check", "Validate many JSON documents concurrently.")
	cc.Flag("quiet", "Only report failures.").Short('q').BoolVar(&cmd.quiet)
	cc.Arg("files", "Input files.").Required().StringsVar(&cmd.files)
	cc.Action(cmd.run)
}

func (cmd *checkCommand) run(*kingpin.ParseContext) error {
	ctx := context.Background()
	jobs, err := cmd.load(ctx)
	if err != nil {
		return err
	}

	r, err := batch.New(cmd.cfg.Workers,
		batch.WithLogger(cmd.log),
		batch.WithParserOptions(cmd.cfg.ParserOptions()...),
	)
	if err != nil {
		return err
	}
	defer r.Release()

	results, err := r.Run(ctx, jobs)
	if err != nil {
		return err
	}
	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(cmd.stdout, "%s:%d:%d: %s\n", res.Name, res.Line, res.Column, describe(res.Err))
			continue
		}
		if !cmd.quiet {
			fmt.Fprintf(cmd.stdout, "%s: ok\n", res.Name)
		}
		_ = res.Factory.Free(res.Value)
	}
	if failed := batch.Failed(results); len(failed) > 0 {
		return errors.Errorf("%d of %d documents invalid", len(failed), len(results))
	}
	return nil
}

// describe 去掉位置后缀的错误描述
func describe(err error) string {
	var pe *json.ParseError
	if !errors.As(err, &pe) {
		return errors.Cause(err).Error()
	}
	if pe.Msg == "" {
		return pe.Err.Error()
	}
	return pe.Err.Error() + ": " + pe.Msg
}

// load 并发读取全部文件
func (cmd *checkCommand) load(ctx context.Context) ([]batch.Job, error) {
	jobs := make([]batch.Job, len(cmd.files))
	g, _ := errgroup.WithContext(ctx)
	if cmd.cfg.Workers > 0 {
		g.SetLimit(cmd.cfg.Workers)
	}
	for i, name := range cmd.files {
		g.Go(func() error {
			data, err := cmd.read(name)
			if err != nil {
				return err
			}
			jobs[i] = batch.Job{Name: name, Data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return jobs, nil
}
