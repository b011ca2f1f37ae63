package ingest

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/vam876/lllmscanner/internal/engine"
	"github.com/vam876/lllmscanner/internal/logger"
	"github.com/vam876/lllmscanner/internal/model"
)

// Handlers — получатели типизированных событий. nil-поле = вид игнорируется.
type Handlers struct {
	Progress       func(model.ProgressEvent)
	ProgressUpdate func(model.ProgressUpdateEvent)
	Result         func(model.ScanResult)
	Log            func(model.LogEvent)
	Complete       func(model.CompleteEvent)
}

type subscription struct {
	kind string
	sink *engine.Sink
}

// Adapter держит по одному lossless-стоку на каждый вид события и раздаёт
// нормализованные события обработчикам. События ядра не теряются: полный
// буфер стока давит обратным давлением на поставщика. Битая нагрузка
// отбрасывается с warning и никогда не роняет процесс.
type Adapter struct {
	hub      *engine.Hub
	handlers Handlers

	subs    []subscription
	closers []io.Closer // ресурсы, освобождаемые вместе с подписками

	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
}

// New: closers — всё, что должно быть освобождено одновременно с подписками
// при останове (таймеры нотификаций и т.п.).
func New(hub *engine.Hub, h Handlers, closers ...io.Closer) *Adapter {
	return &Adapter{hub: hub, handlers: h, closers: closers}
}

func (a *Adapter) Start() {
	a.startOnce.Do(func() {
		for _, kind := range engine.Kinds {
			sub := subscription{kind: kind, sink: a.hub.Attach(kind)}
			a.subs = append(a.subs, sub)

			a.wg.Add(1)
			go func(s subscription) {
				defer a.wg.Done()
				// FIFO внутри вида: один читатель на сток
				for {
					select {
					case raw := <-s.sink.C:
						a.dispatch(s.kind, raw)
					case <-s.sink.Quit():
						// сток снят: добираем уже доставленное и выходим
						for {
							select {
							case raw := <-s.sink.C:
								a.dispatch(s.kind, raw)
							default:
								return
							}
						}
					}
				}
			}(sub)
		}
	})
}

// Close снимает все стоки и освобождает переданные ресурсы.
// Гарантированно выполняется один раз на всех путях останова.
func (a *Adapter) Close() error {
	a.closeOnce.Do(func() {
		for _, s := range a.subs {
			a.hub.Detach(s.kind, s.sink)
		}
		a.wg.Wait()
		for _, c := range a.closers {
			_ = c.Close()
		}
	})
	return nil
}

func (a *Adapter) dispatch(kind string, raw json.RawMessage) {
	switch kind {
	case engine.KindProgress:
		ev, err := parseProgress(raw)
		if err != nil {
			logger.Warnf("ingest: drop malformed %s: %v", kind, err)
			return
		}
		if a.handlers.Progress != nil {
			a.handlers.Progress(ev)
		}
	case engine.KindProgressUpdate:
		ev, err := parseProgressUpdate(raw)
		if err != nil {
			logger.Warnf("ingest: drop malformed %s: %v", kind, err)
			return
		}
		if a.handlers.ProgressUpdate != nil {
			a.handlers.ProgressUpdate(ev)
		}
	case engine.KindResult:
		ev, err := parseResult(raw)
		if err != nil {
			logger.Warnf("ingest: drop malformed %s: %v", kind, err)
			return
		}
		if a.handlers.Result != nil {
			a.handlers.Result(ev)
		}
	case engine.KindLog:
		ev, err := parseLog(raw)
		if err != nil {
			logger.Warnf("ingest: drop malformed %s: %v", kind, err)
			return
		}
		if a.handlers.Log != nil {
			a.handlers.Log(ev)
		}
	case engine.KindComplete:
		ev, err := parseComplete(raw)
		if err != nil {
			logger.Warnf("ingest: drop malformed %s: %v", kind, err)
			return
		}
		if a.handlers.Complete != nil {
			a.handlers.Complete(ev)
		}
	}
}
