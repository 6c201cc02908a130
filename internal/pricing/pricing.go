// README: Fare estimation; route distance via Google Maps with haversine fallback.
package pricing

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
	"googlemaps.github.io/maps"

	"unihub/internal/modules/order"
	"unihub/internal/types"
)

const earthRadiusKm = 6371.0

type rate struct {
	base  float64
	perKm float64
}

var rates = map[order.ServiceType]rate{
	order.ServiceUniMove: {base: 20, perKm: 10},
	order.ServiceUniSend: {base: 15, perKm: 8},
}

// Parcel size scales the delivery fare; unknown sizes price as small.
var packageMultipliers = map[string]float64{
	"small":  1.0,
	"medium": 1.25,
	"large":  1.5,
}

// Estimator computes fares from route distance. With no API key it runs on
// great-circle distance alone, which is good enough for an estimate.
type Estimator struct {
	client *maps.Client
	log    *zap.Logger
}

func NewEstimator(apiKey string, log *zap.Logger) (*Estimator, error) {
	e := &Estimator{log: log}
	if apiKey != "" {
		client, err := maps.NewClient(maps.WithAPIKey(apiKey))
		if err != nil {
			return nil, fmt.Errorf("maps client: %w", err)
		}
		e.client = client
	}
	return e, nil
}

// Estimate never fails; missing coordinates fall back to the base fare.
func (e *Estimator) Estimate(ctx context.Context, serviceType order.ServiceType, pickup, dropoff *types.Point, packageSize *string) float64 {
	r, ok := rates[serviceType]
	if !ok {
		r = rates[order.ServiceUniMove]
	}

	var km float64
	if pickup != nil && dropoff != nil {
		km = e.routeKm(ctx, *pickup, *dropoff)
	}

	fare := r.base + r.perKm*km
	if serviceType == order.ServiceUniSend && packageSize != nil {
		if m, ok := packageMultipliers[*packageSize]; ok {
			fare *= m
		}
	}
	return math.Round(fare*100) / 100
}

func (e *Estimator) routeKm(ctx context.Context, from, to types.Point) float64 {
	if e.client != nil {
		req := &maps.DirectionsRequest{
			Origin:      fmt.Sprintf("%f,%f", from.Lat, from.Lng),
			Destination: fmt.Sprintf("%f,%f", to.Lat, to.Lng),
			Mode:        maps.TravelModeDriving,
		}
		routes, _, err := e.client.Directions(ctx, req)
		if err == nil && len(routes) > 0 && len(routes[0].Legs) > 0 {
			meters := 0
			for _, leg := range routes[0].Legs {
				meters += leg.Distance.Meters
			}
			return float64(meters) / 1000.0
		}
		if err != nil {
			e.log.Warn("directions lookup failed, using haversine", zap.Error(err))
		}
	}
	return haversineKm(from, to)
}

func haversineKm(a, b types.Point) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)
	rLat1 := radians(a.Lat)
	rLat2 := radians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
