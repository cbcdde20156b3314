package service

import (
	"context"

	"github.com/go-kit/kit/endpoint"
	"github.com/mistriapp/mistri/server/mistri"
)

////////////////////////////////////////////////////////////////////////////////
// Get Platform Fee Config
////////////////////////////////////////////////////////////////////////////////

type feeConfigResponse struct {
	FeeConfig *mistri.PlatformFeeConfig `json:"fee_config,omitempty"`
	Err       error                     `json:"error,omitempty"`
}

func (r feeConfigResponse) error() error { return r.Err }

func makeGetFeeConfigEndpoint(svc mistri.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		cfg, err := svc.PlatformFeeConfig(ctx)
		if err != nil {
			return feeConfigResponse{Err: err}, nil
		}
		return feeConfigResponse{FeeConfig: cfg}, nil
	}
}

////////////////////////////////////////////////////////////////////////////////
// Modify Platform Fee Config
////////////////////////////////////////////////////////////////////////////////

type modifyFeeConfigRequest struct {
	payload mistri.PlatformFeeConfig
}

func makeModifyFeeConfigEndpoint(svc mistri.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(modifyFeeConfigRequest)
		if err := svc.ModifyPlatformFeeConfig(ctx, req.payload); err != nil {
			return feeConfigResponse{Err: err}, nil
		}
		cfg, err := svc.PlatformFeeConfig(ctx)
		if err != nil {
			return feeConfigResponse{Err: err}, nil
		}
		return feeConfigResponse{FeeConfig: cfg}, nil
	}
}
