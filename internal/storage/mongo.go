package storage

import (
	"context"
	"errors"
	"fmt"
	"rad/internal/models"
	"rad/internal/providers"
	"rad/internal/structures"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollUsers and CollDailyStats are exported because the pipeline targets
// them through the write-behind queue.
const (
	CollUsers       = "users"
	CollDailyStats  = "daily_stats"
	collRewards     = "rewards"
	collPenalties   = "penalties"
	collConfig      = "config"
	collSystemStats = "system_stats"

	configDocID       = "bot_config"
	settingsDocID     = "settings"
	eventStateDocID   = "event_state"
	winnersDocID      = "recent_winners"
	violationHistory  = 20
	recentWinnersKept = 10
)

// Mongo is the authoritative store. Every method takes the caller's context;
// hot-path deadlines are imposed by the caller through Resolve.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
	logger providers.Logger
}

func NewMongoStore(conf *structures.Config, logger providers.Logger) (*Mongo, error) {
	opts := options.Client().
		ApplyURI(conf.Mongo.Uri).
		SetMaxPoolSize(uint64(conf.Mongo.MaxPoolSize))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var (
		client *mongo.Client
		err    error
	)
	for i := 0; i < conf.Mongo.MaxRetry; i++ {
		client, err = connect(ctx, opts)
		if err == nil {
			break
		}
		time.Sleep(time.Second / 2)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	logger.Infof(providers.TypeStore, "Connected to MongoDB (%s)", conf.Mongo.Database)
	return &Mongo{
		client: client,
		db:     client.Database(conf.Mongo.Database),
		logger: logger,
	}, nil
}

func connect(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return client, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// --- settings blob ---

func (m *Mongo) LoadConfig(ctx context.Context) (*models.BotConfig, error) {
	var conf models.BotConfig
	err := m.db.Collection(collConfig).FindOne(ctx, bson.M{"_id": configDocID}).Decode(&conf)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &models.BotConfig{ID: configDocID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &conf, nil
}

func (m *Mongo) SaveConfig(ctx context.Context, conf *models.BotConfig) error {
	conf.ID = configDocID
	conf.UpdatedAt = time.Now().Unix()
	_, err := m.db.Collection(collConfig).ReplaceOne(
		ctx, bson.M{"_id": configDocID}, conf, options.Replace().SetUpsert(true))
	return err
}

// --- reward-interval documents ---

type eventSettingsDoc struct {
	ID        string               `bson:"_id"`
	Settings  models.EventSettings `bson:"settings"`
	UpdatedAt int64                `bson:"updated_at"`
}

type eventStateDoc struct {
	ID           string `bson:"_id"`
	CurrentCount int    `bson:"current_count"`
	TargetCount  int    `bson:"target_count"`
	UpdatedAt    int64  `bson:"updated_at"`
}

func (m *Mongo) GetEventSettings(ctx context.Context) (*models.EventSettings, error) {
	var doc eventSettingsDoc
	err := m.db.Collection(collRewards).FindOne(ctx, bson.M{"_id": settingsDocID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc.Settings, nil
}

func (m *Mongo) SaveEventSettings(ctx context.Context, s *models.EventSettings) error {
	doc := eventSettingsDoc{ID: settingsDocID, Settings: *s, UpdatedAt: time.Now().Unix()}
	_, err := m.db.Collection(collRewards).ReplaceOne(
		ctx, bson.M{"_id": settingsDocID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (m *Mongo) GetEventState(ctx context.Context) (*models.EventState, error) {
	var doc eventStateDoc
	err := m.db.Collection(collRewards).FindOne(ctx, bson.M{"_id": eventStateDocID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.EventState{CurrentCount: doc.CurrentCount, TargetCount: doc.TargetCount}, nil
}

func (m *Mongo) SaveEventState(ctx context.Context, s *models.EventState) error {
	doc := eventStateDoc{
		ID:           eventStateDocID,
		CurrentCount: s.CurrentCount,
		TargetCount:  s.TargetCount,
		UpdatedAt:    time.Now().Unix(),
	}
	_, err := m.db.Collection(collRewards).ReplaceOne(
		ctx, bson.M{"_id": eventStateDocID}, doc, options.Replace().SetUpsert(true))
	return err
}

// --- entity operations ---

func (m *Mongo) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := m.db.Collection(CollUsers).FindOne(ctx,
		bson.M{"_id": userID},
		options.FindOne().SetProjection(bson.M{"stats": 1, "status": 1}),
	).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (m *Mongo) MutateUserField(ctx context.Context, userID string, set map[string]any, unset []string) error {
	update := bson.M{}
	if len(set) > 0 {
		fields := bson.M{"updated_at": time.Now().Unix()}
		for k, v := range set {
			fields[k] = v
		}
		update["$set"] = fields
	}
	if len(unset) > 0 {
		fields := bson.M{}
		for _, k := range unset {
			fields[k] = ""
		}
		update["$unset"] = fields
	}
	if len(update) == 0 {
		return nil
	}
	_, err := m.db.Collection(CollUsers).UpdateOne(ctx, bson.M{"_id": userID}, update,
		options.Update().SetUpsert(true))
	return err
}

// --- counter increments ---

func (m *Mongo) AtomicIncrement(ctx context.Context, collection string, filter map[string]any, field string, delta int64) error {
	_, err := m.db.Collection(collection).UpdateOne(ctx,
		bson.M(filter),
		bson.M{"$inc": bson.M{field: delta}, "$set": bson.M{"updated_at": time.Now().Unix()}},
		options.Update().SetUpsert(true))
	return err
}

// BulkIncrement applies one unordered bulk of $inc upserts. Unordered means
// one failed write does not stop the rest of the batch.
func (m *Mongo) BulkIncrement(ctx context.Context, collection string, ops []models.Increment) error {
	if len(ops) == 0 {
		return nil
	}
	writes := make([]mongo.WriteModel, 0, len(ops))
	for _, op := range ops {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M(op.Filter)).
			SetUpdate(bson.M{"$inc": bson.M{op.Field: op.Delta}}).
			SetUpsert(true))
	}
	_, err := m.db.Collection(collection).BulkWrite(ctx, writes,
		options.BulkWrite().SetOrdered(false))
	return err
}

// --- moderation ---

func (m *Mongo) setStatusFlag(ctx context.Context, userID, flag string, value bool, extra bson.M) error {
	set := bson.M{"status." + flag: value, "updated_at": time.Now().Unix()}
	for k, v := range extra {
		set[k] = v
	}
	_, err := m.db.Collection(CollUsers).UpdateOne(ctx,
		bson.M{"_id": userID}, bson.M{"$set": set}, options.Update().SetUpsert(true))
	return err
}

func (m *Mongo) BanUser(ctx context.Context, userID, reason string) error {
	return m.setStatusFlag(ctx, userID, "is_banned", true, bson.M{"status.ban_reason": reason})
}

func (m *Mongo) UnbanUser(ctx context.Context, userID string) error {
	return m.setStatusFlag(ctx, userID, "is_banned", false, nil)
}

func (m *Mongo) WhitelistUser(ctx context.Context, userID string) error {
	return m.setStatusFlag(ctx, userID, "is_whitelisted", true, nil)
}

func (m *Mongo) UnwhitelistUser(ctx context.Context, userID string) error {
	return m.setStatusFlag(ctx, userID, "is_whitelisted", false, nil)
}

// AddViolation increments the violation counter, appends to the bounded
// history and returns the new count, which drives penalty escalation.
func (m *Mongo) AddViolation(ctx context.Context, userID, reason string) (int, error) {
	now := time.Now().Unix()
	var user models.User
	err := m.db.Collection(CollUsers).FindOneAndUpdate(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$inc": bson.M{"violations.count": 1},
			"$set": bson.M{"violations.last_violation": now, "updated_at": now},
			"$push": bson.M{"violations.history": bson.M{
				"$each":  []models.ViolationEntry{{At: now, Reason: reason}},
				"$slice": -violationHistory,
			}},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		return 0, err
	}
	return user.Violations.Count, nil
}

func (m *Mongo) ResetViolations(ctx context.Context, userID string) error {
	_, err := m.db.Collection(CollUsers).UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{
			"violations": models.Violations{},
			"updated_at": time.Now().Unix(),
		}})
	return err
}

func (m *Mongo) AddPenalty(ctx context.Context, userID string, duration time.Duration, reason string) error {
	now := time.Now()
	expires := now.Add(duration).Unix()
	if err := m.setStatusFlag(ctx, userID, "is_penalized", true, bson.M{
		"status.penalty_expires": expires,
		"status.penalty_reason":  reason,
	}); err != nil {
		return err
	}

	// Audit record; failure here must not undo the penalty itself.
	_, err := m.db.Collection(collPenalties).InsertOne(ctx, bson.M{
		"user_id":    userID,
		"reason":     reason,
		"duration_s": int64(duration.Seconds()),
		"expires":    expires,
		"created_at": now.Unix(),
	})
	if err != nil {
		m.logger.Warnf(providers.TypeStore, "penalty audit insert failed for %s: %s", userID, err)
	}
	return nil
}

func (m *Mongo) ClearPenalty(ctx context.Context, userID string) error {
	_, err := m.db.Collection(CollUsers).UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$set":   bson.M{"status.is_penalized": false, "updated_at": time.Now().Unix()},
			"$unset": bson.M{"status.penalty_expires": "", "status.penalty_reason": ""},
		})
	return err
}

// --- rewards ---

func (m *Mongo) AddUserStock(ctx context.Context, userID string, amount int64) error {
	now := time.Now()
	_, err := m.db.Collection(CollUsers).UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$inc": bson.M{"stats.total_stocks": amount},
			"$set": bson.M{"stats.last_win": now.Unix(), "updated_at": now.Unix()},
		},
		options.Update().SetUpsert(true))
	if err != nil {
		return err
	}

	date := DateKey(now)
	userPrefix := "stats." + userID + "."
	_, err = m.db.Collection(CollDailyStats).UpdateOne(ctx,
		bson.M{"_id": date},
		bson.M{
			"$inc": bson.M{userPrefix + "stocks_won": amount, userPrefix + "wins_count": 1},
			"$set": bson.M{"updated_at": now.Unix()},
		},
		options.Update().SetUpsert(true))
	return err
}

func (m *Mongo) IncrementTotalSelections(ctx context.Context, amount int64) error {
	return m.AtomicIncrement(ctx, collSystemStats,
		map[string]any{"_id": "global_stats"}, "total_rewards_given", amount)
}

func (m *Mongo) AddRecentWinner(ctx context.Context, winner models.Winner) error {
	_, err := m.db.Collection(collSystemStats).UpdateOne(ctx,
		bson.M{"_id": winnersDocID},
		bson.M{
			"$push": bson.M{"winners": bson.M{
				"$each":  []models.Winner{winner},
				"$slice": -recentWinnersKept,
			}},
			"$set": bson.M{"updated_at": time.Now().Unix()},
		},
		options.Update().SetUpsert(true))
	return err
}

// --- aggregates ---

type dailyDoc struct {
	ID    string                           `bson:"_id"`
	Stats map[string]models.DailyUserStats `bson:"stats"`
}

func (m *Mongo) GetDailyStats(ctx context.Context, userID, date string) (*models.DailyUserStats, error) {
	var doc dailyDoc
	err := m.db.Collection(CollDailyStats).FindOne(ctx,
		bson.M{"_id": date},
		options.FindOne().SetProjection(bson.M{"stats." + userID: 1}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &models.DailyUserStats{}, nil
	}
	if err != nil {
		return nil, err
	}
	if stats, ok := doc.Stats[userID]; ok {
		return &stats, nil
	}
	return &models.DailyUserStats{}, nil
}

func (m *Mongo) GetTopDaily(ctx context.Context, date string, limit int) ([]models.TopEntry, error) {
	var doc dailyDoc
	err := m.db.Collection(CollDailyStats).FindOne(ctx, bson.M{"_id": date}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	entries := make([]models.TopEntry, 0, len(doc.Stats))
	for uid, s := range doc.Stats {
		entries = append(entries, models.TopEntry{UserID: uid, Messages: s.Messages, Stocks: s.StocksWon})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Messages != entries[j].Messages {
			return entries[i].Messages > entries[j].Messages
		}
		return entries[i].UserID < entries[j].UserID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
