package decision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/arhipvp/docrouter/internal/domain"
)

// Resolver — единственный потребитель очереди решений.
// Работает строго последовательно: пока человек не ответил на текущее
// решение (и мы не попытались отдать ответ воркфлоу), следующее из очереди
// не достается. Благодаря этому решения показываются в порядке поступления
// и одновременно «живым» бывает ровно одно — никаких блокировок вокруг
// человеческого интерфейса не нужно.
//
// Ошибки изолированы по-элементно: кривой ввод или упавший callback
// логируются и не останавливают цикл.
type Resolver struct {
	queue    *Queue
	prompter domain.Prompter
	client   *http.Client
	logger   *zap.Logger

	// Управление жизненным циклом фоновой горутины.
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewResolver создает резолвер. callbackTimeout ограничивает время
// исходящего POST на resume_url, чтобы зависший воркфлоу-движок
// не остановил весь цикл навсегда.
func NewResolver(queue *Queue, prompter domain.Prompter, callbackTimeout time.Duration, logger *zap.Logger) *Resolver {
	if callbackTimeout <= 0 {
		callbackTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Resolver{
		queue:    queue,
		prompter: prompter,
		client:   &http.Client{Timeout: callbackTimeout},
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start запускает цикл резолвера в фоне.
func (r *Resolver) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run()
	}()
	r.logger.Info("decision resolver started")
}

// Stop останавливает цикл и дожидается его завершения.
// Решение, находящееся в работе, будет дорезолвлено.
func (r *Resolver) Stop() {
	r.stopOnce.Do(func() {
		r.cancel()
		r.wg.Wait()
		r.logger.Info("decision resolver stopped")
	})
}

// run — основной цикл: взять решение, показать человеку, отдать ответ.
func (r *Resolver) run() {
	for {
		d, err := r.queue.Dequeue(r.ctx)
		if err != nil {
			// Контекст отменен или очередь закрыта — штатное завершение.
			r.logger.Info("resolver loop exiting", zap.Error(err))
			return
		}
		r.resolve(d)
	}
}

// resolve проводит одно решение по всем стадиям:
// Queued -> Presented -> {Resolved|Discarded} -> CallbackAttempted.
// Возврата в очередь нет ни при каком исходе.
func (r *Resolver) resolve(d *domain.PendingDecision) {
	r.logger.Info("decision presented",
		zap.String("request_id", d.RequestID),
		zap.Int("endpoints", len(d.FolderEndpoints)),
		zap.Bool("has_suggestion", d.SuggestedPath != ""),
	)

	result, ok := r.decide(d)
	if !ok {
		// Кривой ввод — решение выбрасывается без повторного вопроса.
		// Производитель сам переиздаст шаг ожидания, если ему еще надо.
		r.logger.Warn("decision discarded: invalid human input",
			zap.String("request_id", d.RequestID),
		)
		return
	}

	r.callback(d.ResumeURL, result)
}

// decide показывает решение человеку и превращает его ответ в DecisionResult.
// ok=false означает «ввод не разобрали, решение выбрасываем».
func (r *Resolver) decide(d *domain.PendingDecision) (*domain.DecisionResult, bool) {
	input, err := r.prompter.Prompt(d)
	if err != nil {
		r.logger.Warn("prompt failed",
			zap.String("request_id", d.RequestID),
			zap.Error(err),
		)
		return nil, false
	}

	choice := strings.TrimSpace(input)

	// Директива "создать новую папку": путь спрашиваем отдельно,
	// пустой ответ означает «взять предложенный».
	if strings.EqualFold(choice, "c") {
		entered, err := r.prompter.PromptPath(d.SuggestedPath)
		if err != nil {
			r.logger.Warn("path prompt failed",
				zap.String("request_id", d.RequestID),
				zap.Error(err),
			)
			return nil, false
		}
		newPath := strings.TrimSpace(entered)
		if newPath == "" {
			newPath = d.SuggestedPath
		}
		if newPath == "" {
			// Создавать нечего: ни ввода, ни предложения.
			return nil, false
		}
		r.logger.Info("new path chosen",
			zap.String("request_id", d.RequestID),
			zap.String("path", newPath),
		)
		return &domain.DecisionResult{
			RequestID:     d.RequestID,
			SuggestedPath: &newPath,
			Create:        true,
		}, true
	}

	idx, err := strconv.Atoi(choice)
	if err != nil || idx < 1 || idx > len(d.FolderEndpoints) {
		return nil, false
	}

	selected := d.FolderEndpoints[idx-1]
	r.logger.Info("existing path selected",
		zap.String("request_id", d.RequestID),
		zap.String("path", selected),
	)
	return &domain.DecisionResult{
		RequestID:    d.RequestID,
		SelectedPath: &selected,
		Create:       false,
	}, true
}

// callback отправляет результат на resume_url, возобновляя воркфлоу.
// Ошибка логируется и глотается: решение не возвращается в очередь,
// воркфлоу-движок сам отвалится по своему таймауту ожидания.
func (r *Resolver) callback(resumeURL string, result *domain.DecisionResult) {
	body, err := json.Marshal(result)
	if err != nil {
		r.logger.Error("failed to marshal decision result",
			zap.String("request_id", result.RequestID),
			zap.Error(err),
		)
		return
	}

	req, err := http.NewRequestWithContext(r.ctx, http.MethodPost, resumeURL, bytes.NewReader(body))
	if err != nil {
		r.logger.Error("failed to build resume request",
			zap.String("request_id", result.RequestID),
			zap.String("resume_url", resumeURL),
			zap.Error(err),
		)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Error("resume POST failed",
			zap.String("request_id", result.RequestID),
			zap.String("resume_url", resumeURL),
			zap.Error(err),
		)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.logger.Error("resume POST rejected",
			zap.String("request_id", result.RequestID),
			zap.String("resume_url", resumeURL),
			zap.String("status", fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))),
		)
		return
	}

	r.logger.Info("decision sent, workflow resumed",
		zap.String("request_id", result.RequestID),
	)
}
