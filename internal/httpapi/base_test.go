// README: Error-status mapping and DTO conversion tests.
package httpapi

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"unihub/internal/modules/customer"
	"unihub/internal/modules/driver"
	"unihub/internal/modules/order"
	"unihub/internal/types"
)

func TestWriteOrderError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err  error
		want int
	}{
		{order.ErrBadRequest, http.StatusBadRequest},
		{order.ErrNotFound, http.StatusNotFound},
		{order.ErrOrderTaken, http.StatusConflict},
		{order.ErrInvalidState, http.StatusConflict},
		{order.ErrConflict, http.StatusConflict},
		{driver.ErrBusy, http.StatusTooManyRequests},
		{customer.ErrBusy, http.StatusTooManyRequests},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		writeOrderError(c, tc.err)
		require.Equal(t, tc.want, w.Code, "error %v", tc.err)
		require.Contains(t, w.Header().Get("Content-Type"), "application/json")
	}
}

func TestToOrderDTO(t *testing.T) {
	d := types.ID("d1")
	size := "medium"
	now := time.Now().UTC()
	o := order.Order{
		ID:              "o1",
		Source:          order.SourceOrders,
		CustomerID:      "c1",
		DriverID:        &d,
		PickupAddress:   "KK8",
		DeliveryAddress: "Library",
		PickupCoords:    &types.Point{Lat: 3.12, Lng: 101.65},
		ServiceType:     order.ServiceUniSend,
		PackageSize:     &size,
		TotalAmount:     18.75,
		Status:          order.StatusAccepted,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	dto := toOrderDTO(o)
	require.Equal(t, "o1", dto.ID)
	require.Equal(t, "orders", dto.Source)
	require.NotNil(t, dto.DriverID)
	require.Equal(t, "d1", *dto.DriverID)
	require.NotNil(t, dto.PickupCoords)
	require.Equal(t, 3.12, dto.PickupCoords.Lat)
	require.Nil(t, dto.DeliveryCoords)
	require.Equal(t, "unisend", dto.ServiceType)
	require.Equal(t, "accepted", dto.Status)
}

func TestToOrderDTOUnclaimed(t *testing.T) {
	dto := toOrderDTO(order.Order{ID: "o1", Status: order.StatusPending})
	require.Nil(t, dto.DriverID)
	require.Nil(t, dto.PackageSize)
}

func TestPointDTORoundTrip(t *testing.T) {
	p := &types.Point{Lat: 3.1187, Lng: 101.6545}
	require.Equal(t, p, fromPointDTO(toPointDTO(p)))
	require.Nil(t, toPointDTO(nil))
	require.Nil(t, fromPointDTO(nil))
}
