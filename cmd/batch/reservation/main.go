package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/uma-arai/sbcntr-booking/internal/common/config"
	"github.com/uma-arai/sbcntr-booking/internal/common/utils"
	"github.com/uma-arai/sbcntr-booking/internal/service/batch"
)

const (
	projectName = "sbcntr-booking"
	metricsJob  = "booking_batch"

	localTaskToken = "DUMMY_TASK_TOKEN"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		input   string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "reservation [requests-json] <task-token>",
		Short: "予約リクエストを予約フォームに通して作成・変更します",
		Long: "予約リクエスト(JSON配列)を --input のファイル、または引数から読み込みます。\n" +
			"ENV=LOCAL以外では最後の引数をStep Functionsのタスクトークンとして扱います。",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), input, timeout, args)
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "予約リクエストのJSONファイル")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "バッチ処理のタイムアウト時間")

	cmd.AddCommand(newListCmd())
	return cmd
}

func isLocal() bool {
	return os.Getenv("ENV") == "LOCAL"
}

// splitArgs は位置引数をリクエストのJSONとタスクトークンに分けます
// ENV=LOCALの場合はタスクトークンを取得しない
func splitArgs(args []string, local bool) (payload, taskToken string, err error) {
	if local {
		taskToken = localTaskToken
	} else {
		if len(args) == 0 || args[len(args)-1] == "" {
			return "", "", errors.New("task token is required")
		}
		taskToken = args[len(args)-1]
		args = args[:len(args)-1]
	}

	switch len(args) {
	case 0:
	case 1:
		payload = args[0]
	default:
		return "", "", fmt.Errorf("unexpected arguments: %v", args)
	}
	return payload, taskToken, nil
}

// readRequests は --input のファイル、なければ引数のJSONを読み込みます
func readRequests(input, payload string) ([]byte, error) {
	if input != "" {
		data, err := os.ReadFile(input)
		if err != nil {
			return nil, fmt.Errorf("failed to read input file: %w", err)
		}
		return data, nil
	}
	if payload == "" {
		return nil, errors.New("booking requests are required (--input or argument)")
	}
	return []byte(payload), nil
}

func configureTracing(log *logrus.Entry) {
	if err := xray.Configure(xray.Config{
		DaemonAddr:     "127.0.0.1:2000", // X-Rayデーモンのアドレス
		ServiceVersion: "1.0.0",
	}); err != nil {
		log.WithError(err).Warn("failed to configure X-Ray")
		// X-Ray設定失敗時はデフォルトの設定を使用
		if configErr := xray.Configure(xray.Config{}); configErr != nil {
			log.WithError(configErr).Fatal("failed to configure default X-Ray settings")
		}
	}
	os.Setenv("AWS_XRAY_CONTEXT_MISSING", "LOG_ERROR")
}

func runBatch(parent context.Context, input string, timeout time.Duration, args []string) error {
	payload, taskToken, err := splitArgs(args, isLocal())
	if err != nil {
		return err
	}

	// 設定の読み込み
	cfg, err := config.LoadConfig(taskToken)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logrus.NewEntry(utils.NewLogger(cfg.LogLevel, os.Stdout)).WithField("service", projectName)

	if cfg.EnableTracing {
		configureTracing(log)
	}

	// Step Functionsクライアントの初期化
	var sfnClient *sfn.Client
	if !isLocal() {
		awsCfg, err := awsconfig.LoadDefaultConfig(parent)
		if err != nil {
			return fmt.Errorf("failed to load AWS config: %w", err)
		}
		sfnClient = sfn.NewFromConfig(awsCfg)
	}

	runErr := execute(parent, cfg, sfnClient, log, input, payload, timeout)
	if runErr != nil {
		log.WithField("stack", utils.FormatStack(runErr)).WithError(runErr).Error("batch process failed")
		sendTaskFailure(sfnClient, taskToken, runErr, log)
	} else {
		log.Info("batch process completed successfully")
	}

	if cfg.PushgatewayURL != "" {
		if err := batch.PushMetrics(cfg.PushgatewayURL, metricsJob); err != nil {
			log.WithError(err).Warn("failed to push metrics")
		}
	}
	return runErr
}

func execute(parent context.Context, cfg *config.Config, sfnClient *sfn.Client, log *logrus.Entry, input, payload string, timeout time.Duration) error {
	data, err := readRequests(input, payload)
	if err != nil {
		return err
	}
	requests, err := batch.ParseArgs(data)
	if err != nil {
		return err
	}

	// nilの*sfn.Clientをインターフェースに入れない
	var client batch.SFNClient
	if sfnClient != nil {
		client = sfnClient
	}

	// サービスの初期化
	service, err := batch.NewReservationBatchService(cfg, client, log)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer func() {
		if err := service.Close(); err != nil {
			log.WithError(err).Warn("failed to close service")
		}
	}()
	service.SetArgs(requests)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// X-Rayセグメントの作成
	if cfg.EnableTracing {
		var seg *xray.Segment
		ctx, seg = xray.BeginSegment(ctx, projectName)
		defer seg.Close(nil)

		// セグメントにメタデータを追加
		if err := seg.AddMetadata("requests", len(requests)); err != nil {
			log.WithError(err).Warn("failed to add requests metadata")
		}
		if err := seg.AddMetadata("timeout", timeout.String()); err != nil {
			log.WithError(err).Warn("failed to add timeout metadata")
		}
	}

	// シグナルハンドリングの設定
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// バッチ処理の実行
	errChan := make(chan error, 1)
	go func() {
		errChan <- utils.RunWithTimeout(ctx, timeout, service.Run)
	}()

	// シグナルまたはエラーの待機
	select {
	case sig := <-sigChan:
		log.WithField("signal", sig.String()).Warn("received signal")
		cancel()
		<-errChan
		return fmt.Errorf("interrupted by %s", sig)
	case err := <-errChan:
		return err
	}
}

// sendTaskFailure はローカル環境以外の場合のみStep Functionsのエラー通知を行います
func sendTaskFailure(sfnClient *sfn.Client, taskToken string, cause error, log *logrus.Entry) {
	if isLocal() || sfnClient == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := sfnClient.SendTaskFailure(ctx, &sfn.SendTaskFailureInput{
		TaskToken: aws.String(taskToken),
		Error:     aws.String("Batch process failed"),
		Cause:     aws.String(cause.Error()),
	})
	if err != nil {
		log.WithError(err).Error("failed to send task failure")
	}
}
