// cmd/reviewer/review.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Corphon/AICodeReviewer/internal/app"
	"github.com/Corphon/AICodeReviewer/internal/llm"
	"github.com/Corphon/AICodeReviewer/internal/llm/providers/google"
	"github.com/Corphon/AICodeReviewer/internal/review"
	"github.com/Corphon/AICodeReviewer/internal/services"
	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var rawOutput bool

var reviewCmd = &cobra.Command{
	Use:   "review [file|-]",
	Short: "Review a source file (or stdin)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := readInput(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}

		if cfg.GeminiAPIKey == "" {
			return errors.New("GOOGLE_GEMINI_KEY is not set")
		}
		provider, err := llm.GetProvider(google.ProviderName, map[string]string{
			"api_key":       cfg.GeminiAPIKey,
			"default_model": cfg.GeminiModel,
		})
		if err != nil {
			return err
		}

		llmService := services.NewLLMServiceWithProvider(google.ProviderName, provider, cfg.GeminiModel)
		reviewService, err := app.NewReviewService(cfg, llmService)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		result, err := reviewService.Review(ctx, input, &progressPrinter{w: cmd.ErrOrStderr()})
		if err != nil {
			return err
		}

		if err := printReview(cmd.OutOrStdout(), result.Message(), rawOutput); err != nil {
			return err
		}
		if !result.OK() {
			return fmt.Errorf("review %s: %w", result.Status, result.Err)
		}
		return nil
	},
}

var classifyCmd = &cobra.Command{
	Use:   "classify [file|-]",
	Short: "Print whether the input is treated as code or casual text",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := readInput(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}

		// 分类不调用模型，生成端永远不会被使用
		offline := review.GeneratorFunc(func(context.Context, review.GenerateRequest) (string, error) {
			return "", services.ErrLLMNotReady
		})
		reviewService, err := app.NewReviewService(cfg, offline)
		if err != nil {
			return err
		}

		kind, marker, chunks := reviewService.Classify(input)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "kind:   %s\n", kind)
		if marker != "" {
			fmt.Fprintf(out, "marker: %s\n", marker)
		}
		fmt.Fprintf(out, "chunks: %d (size %d)\n", chunks, reviewService.ChunkSize())
		return nil
	},
}

func init() {
	reviewCmd.Flags().BoolVar(&rawOutput, "raw", false, "Print raw Markdown instead of rendering it")
}

func readInput(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read %s: %w", args[0], err)
	}
	return string(data), nil
}

func printReview(w io.Writer, text string, raw bool) error {
	if raw {
		_, err := fmt.Fprintln(w, text)
		return err
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return fmt.Errorf("create markdown renderer: %w", err)
	}
	rendered, err := renderer.Render(text)
	if err != nil {
		// 渲染失败时退回原文
		_, err = fmt.Fprintln(w, text)
		return err
	}
	_, err = fmt.Fprint(w, rendered)
	return err
}

// progressPrinter 在 stderr 上显示逐块进度
type progressPrinter struct {
	w io.Writer
}

func (p *progressPrinter) OnChunkStart(index, total int) {
	fmt.Fprintf(p.w, "⏳ reviewing chunk %d/%d\n", index+1, total)
}

func (p *progressPrinter) OnChunkReviewed(cr review.ChunkReview, total int) {
	fmt.Fprintf(p.w, "✅ chunk %d/%d done\n", cr.Index+1, total)
}

func (p *progressPrinter) OnChunkFailed(index, total int, err error) {
	fmt.Fprintf(p.w, "❌ chunk %d/%d failed: %v\n", index+1, total, err)
}
