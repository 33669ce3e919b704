// internal/app/system/chanmirror/stream.go
package chanmirror

import (
	"context"
	"errors"
	"fmt"
	"time"

	stream "github.com/GetStream/stream-chat-go/v6"
	"github.com/dalemusser/lingohub/internal/app/system/metrics"
	"github.com/dalemusser/lingohub/internal/app/system/normalize"
	"github.com/dalemusser/lingohub/internal/app/system/timeouts"
	"github.com/dalemusser/lingohub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// DefaultChannelType is the provider channel type for group chats.
const DefaultChannelType = "messaging"

// Stream mirrors channels into Stream Chat.
type Stream struct {
	client      *stream.Client
	channelType string
	tokenTTL    time.Duration
	log         *zap.Logger
}

// StreamConfig configures NewStream.
type StreamConfig struct {
	APIKey      string
	APISecret   string
	ChannelType string
	TokenTTL    time.Duration // zero issues tokens without expiry
}

// NewStream builds a Stream mirror.
func NewStream(cfg StreamConfig, logger *zap.Logger) (*Stream, error) {
	client, err := stream.NewClient(cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("stream client: %w", err)
	}
	ct := cfg.ChannelType
	if ct == "" {
		ct = DefaultChannelType
	}
	return &Stream{client: client, channelType: ct, tokenTTL: cfg.TokenTTL, log: logger}, nil
}

// call bounds fn by the mirror timeout and records its outcome.
func (s *Stream) call(parent context.Context, op, channelID string, fn func(ctx context.Context) error) Result {
	ctx, cancel := timeouts.WithTimeout(parent, timeouts.Mirror(), s.log, "chanmirror."+op)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start).Seconds()

	switch {
	case err == nil:
		metrics.MirrorCall(op, metrics.OK, elapsed)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		metrics.MirrorCall(op, metrics.Timeout, elapsed)
		err = fmt.Errorf("%s timed out: %w", op, err)
	default:
		metrics.MirrorCall(op, metrics.Error, elapsed)
	}
	return Result{Op: op, ChannelID: channelID, Err: err}
}

func (s *Stream) CreateChannel(ctx context.Context, channelID string, creator primitive.ObjectID, members []primitive.ObjectID, info ChannelInfo) Result {
	return s.call(ctx, OpCreateChannel, channelID, func(ctx context.Context) error {
		_, err := s.client.CreateChannel(ctx, s.channelType, channelID, creator.Hex(), &stream.ChannelRequest{
			Members: normalize.Hexes(members),
			ExtraData: map[string]interface{}{
				"name":        info.Name,
				"description": info.Description,
				"image":       info.Image,
			},
		})
		return err
	})
}

func (s *Stream) AddMembers(ctx context.Context, channelID string, members []primitive.ObjectID) Result {
	return s.call(ctx, OpAddMembers, channelID, func(ctx context.Context) error {
		_, err := s.client.Channel(s.channelType, channelID).AddMembers(ctx, normalize.Hexes(members))
		return err
	})
}

func (s *Stream) RemoveMember(ctx context.Context, channelID string, member primitive.ObjectID) Result {
	return s.call(ctx, OpRemoveMember, channelID, func(ctx context.Context) error {
		_, err := s.client.Channel(s.channelType, channelID).RemoveMembers(ctx, []string{member.Hex()}, nil)
		return err
	})
}

func (s *Stream) UpdateChannel(ctx context.Context, channelID string, update ChannelUpdate) Result {
	return s.call(ctx, OpUpdateChannel, channelID, func(ctx context.Context) error {
		set := map[string]interface{}{}
		if update.Name != nil {
			set["name"] = *update.Name
		}
		if update.Description != nil {
			set["description"] = *update.Description
		}
		if len(set) == 0 {
			return nil
		}
		_, err := s.client.Channel(s.channelType, channelID).PartialUpdate(ctx, stream.PartialUpdate{Set: set})
		return err
	})
}

func (s *Stream) DeleteChannel(ctx context.Context, channelID string) Result {
	return s.call(ctx, OpDeleteChannel, channelID, func(ctx context.Context) error {
		_, err := s.client.Channel(s.channelType, channelID).Delete(ctx)
		return err
	})
}

func (s *Stream) PostSystemMessage(ctx context.Context, channelID, text string) Result {
	return s.call(ctx, OpSystemMessage, channelID, func(ctx context.Context) error {
		_, err := s.client.Channel(s.channelType, channelID).SendMessage(ctx, &stream.Message{
			Text: text,
			Type: stream.MessageTypeSystem,
		}, SystemUserID)
		return err
	})
}

func (s *Stream) UpsertUser(ctx context.Context, user models.UserSummary) Result {
	return s.call(ctx, OpUpsertUser, "", func(ctx context.Context) error {
		_, err := s.client.UpsertUser(ctx, &stream.User{
			ID:    user.ID.Hex(),
			Name:  user.FullName,
			Image: user.ProfilePic,
		})
		return err
	})
}

func (s *Stream) UserToken(userID primitive.ObjectID) (string, error) {
	var expire time.Time
	if s.tokenTTL > 0 {
		expire = time.Now().Add(s.tokenTTL)
	}
	return s.client.CreateToken(userID.Hex(), expire)
}
