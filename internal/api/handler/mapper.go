package handler

import (
	"github.com/loaderhub/order-engine/internal/core/domain"
	"github.com/loaderhub/order-engine/internal/core/ports"
)

// toOrderResponse maps a domain order to its JSON representation. History is
// omitted; list views do not carry it.
func toOrderResponse(o *domain.Order) orderResponse {
	resp := orderResponse{
		Number:         o.Number,
		Address:        o.Address,
		ScheduledAt:    o.ScheduledAt,
		Cargo:          o.Cargo,
		PricePerHour:   o.PricePerHour,
		EstimatedHours: o.EstimatedHours,
		TotalPrice:     o.TotalPrice(),
		Comment:        o.Comment,
		Status:         string(o.Status),
		Dispatcher:     userRef{ID: o.DispatcherID, Name: o.DispatcherName},
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	if o.WorkerID != "" {
		resp.Worker = &userRef{ID: o.WorkerID, Name: o.WorkerName}
	}
	if o.FormerWorkerID != "" {
		resp.FormerWorker = &userRef{ID: o.FormerWorkerID, Name: o.FormerWorkerName}
	}
	if o.WorkerRating != nil {
		s := o.WorkerRating.String()
		resp.Rating = &s
	}
	return resp
}

// toOrderDetailResponse is the single-order view: same shape plus the status
// history timeline.
func toOrderDetailResponse(o *domain.Order) orderResponse {
	resp := toOrderResponse(o)
	resp.StatusHistory = make([]statusHistoryItemResponse, 0, len(o.StatusHistory))
	for _, h := range o.StatusHistory {
		resp.StatusHistory = append(resp.StatusHistory, statusHistoryItemResponse{
			Status:    string(h.Status),
			Timestamp: h.Timestamp,
			Notes:     h.Notes,
		})
	}
	return resp
}

func toOrderListResponse(orders []*domain.Order) orderListResponse {
	data := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		data = append(data, toOrderResponse(o))
	}
	return orderListResponse{Data: data, Count: len(data)}
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

func toStatsResponse(s *ports.Stats) statsResponse {
	resp := statsResponse{
		CompletedCount: s.CompletedCount,
		ActiveCount:    s.ActiveCount,
		TotalEarnings:  s.TotalEarnings,
	}
	if s.AverageRating != nil {
		v := s.AverageRating.String()
		resp.AverageRating = &v
	}
	return resp
}
