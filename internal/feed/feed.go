// Package feed канал изменений поверх Redis pub/sub. События это непрозрачные
// токены "строка таблицы изменилась" без гарантий порядка и кратности
// доставки; потребитель обязан перечитывать данные, а не применять события
// как дельты.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Имена таблиц по которым ключуется канал изменений
const (
	TableLessonSlots  = "lesson_slots"
	TableReservations = "reservations"
)

const channelPrefix = "changefeed:"

// Event уведомление об изменении строки. Полям нельзя доверять дальше имени
// таблицы: payload может быть усечён или отстать от фактического состояния
type Event struct {
	Table string `json:"table"`
	ID    string `json:"id,omitempty"`
}

// Publisher публикует события изменений
type Publisher struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewPublisher(rdb *redis.Client, logger *zap.Logger) *Publisher {
	return &Publisher{rdb: rdb, logger: logger}
}

// Publish отправляет событие изменения строки таблицы. Ошибка публикации
// только логируется: канал изменений это best-effort триггер, а не источник
// истины, потерянное событие закроет следующий refetch
func (p *Publisher) Publish(ctx context.Context, table, id string) {
	payload, err := json.Marshal(Event{Table: table, ID: id})
	if err != nil {
		p.logger.Error("Failed to marshal feed event", zap.Error(err))
		return
	}

	if err := p.rdb.Publish(ctx, channelPrefix+table, payload).Err(); err != nil {
		p.logger.Warn("Failed to publish feed event",
			zap.String("table", table),
			zap.Error(err),
		)
	}
}

// Subscriber подписка на события изменений по всем таблицам
type Subscriber struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewSubscriber(rdb *redis.Client, logger *zap.Logger) *Subscriber {
	return &Subscriber{rdb: rdb, logger: logger}
}

// Subscribe открывает подписку и возвращает канал событий. Канал закрывается
// при отмене контекста. Нераспарсившиеся сообщения превращаются в событие
// с одним именем таблицы: этого достаточно чтобы запустить refetch
func (s *Subscriber) Subscribe(ctx context.Context, tables ...string) (<-chan Event, error) {
	if len(tables) == 0 {
		tables = []string{TableLessonSlots, TableReservations}
	}

	channels := make([]string, len(tables))
	for i, t := range tables {
		channels[i] = channelPrefix + t
	}

	sub := s.rdb.Subscribe(ctx, channels...)

	// Дожидаемся подтверждения подписки чтобы не терять ранние события
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := sub.Receive(waitCtx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe to change feed: %w", err)
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					ev = Event{Table: tableFromChannel(msg.Channel)}
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func tableFromChannel(channel string) string {
	if len(channel) > len(channelPrefix) {
		return channel[len(channelPrefix):]
	}
	return channel
}
