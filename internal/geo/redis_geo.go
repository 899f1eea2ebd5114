package geo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/ride-dispatch/internal/models"
)

// RedisGeo implements Locator using Redis GEO commands. Positions are
// written by the location consumer (or Upsert) and read with GEOPOS.
type RedisGeo struct {
	client *redis.Client
	key    string
	label  string
}

func NewRedisGeo(addr, password, key, label string) *RedisGeo {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisGeo{client: c, key: key, label: label}
}

func (r *RedisGeo) Upsert(ctx context.Context, d models.DriverLocation) error {
	name := member(d.DriverID)
	pipe := r.client.Pipeline()
	pipe.GeoAdd(ctx, r.key, &redis.GeoLocation{Longitude: d.Location.Lng, Latitude: d.Location.Lat, Name: name})
	pipe.HSet(ctx, MetaKey(d.DriverID), map[string]interface{}{"event_id": d.EventID.String(), "updated": d.Updated.Format(time.RFC3339)})
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisGeo) Locate(ctx context.Context, driverID int64) (models.Stop, error) {
	res, err := r.client.GeoPos(ctx, r.key, member(driverID)).Result()
	if err != nil {
		return models.Stop{}, fmt.Errorf("geopos driver %d: %w", driverID, err)
	}
	if len(res) == 0 || res[0] == nil {
		return models.Stop{}, fmt.Errorf("driver %d: %w", driverID, ErrUnknownDriver)
	}
	return models.Stop{Location: models.LatLng{Lat: res[0].Latitude, Lng: res[0].Longitude}, Address: r.label}, nil
}

func (r *RedisGeo) Ping(ctx context.Context) error { return r.client.Ping(ctx).Err() }

func (r *RedisGeo) Close() error { return r.client.Close() }

func member(id int64) string { return strconv.FormatInt(id, 10) }

func MetaKey(id int64) string { return "driver:meta:" + member(id) }
