package service

import (
	"context"

	"github.com/rewear/swap-ledger/internal/models"
)

func (s *DefaultService) ListTestimonials(ctx context.Context, limit int) ([]models.Testimonial, error) {
	if limit > 50 {
		limit = 50
	}
	testimonials, err := s.testimonials.ListTestimonials(ctx, limit)
	if err != nil {
		return nil, transient("list testimonials", err)
	}
	return testimonials, nil
}

func (s *DefaultService) CreateTestimonial(ctx context.Context, req models.CreateTestimonialRequest) (*models.Testimonial, error) {
	t := &models.Testimonial{
		Name:      req.Name,
		Email:     req.Email,
		Message:   req.Message,
		CreatedAt: s.now(),
	}
	if err := s.testimonials.CreateTestimonial(ctx, t); err != nil {
		return nil, transient("create testimonial", err)
	}
	return t, nil
}
