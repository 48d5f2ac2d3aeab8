package chainops

import (
	"encoding/json"
	"errors"
	"fmt"
)

// TransferParams 是转账操作的原始入参。
type TransferParams struct {
	Destination  string
	AmountMutez  int64
	FeeMutez     int64
	GasLimit     int64
	StorageLimit int64
	Parameters   json.RawMessage
}

// OriginateParams 是合约部署操作的原始入参。
type OriginateParams struct {
	BalanceMutez int64
	Code         json.RawMessage
	Storage      json.RawMessage
	Delegate     string
	FeeMutez     int64
}

// DelegateParams 是委托操作的原始入参。
type DelegateParams struct {
	Delegate string
	FeeMutez int64
}

var (
	errMissingDestination = errors.New("transfer destination is required")
	errMissingCode        = errors.New("origination code is required")
	errMissingDelegate    = errors.New("delegate is required")
)

// NormalizeTransfer 校验并归一化转账参数。
func NormalizeTransfer(params TransferParams) (OperationParams, error) {
	if params.Destination == "" {
		return OperationParams{}, errMissingDestination
	}
	if params.AmountMutez < 0 {
		return OperationParams{}, fmt.Errorf("negative amount %d", params.AmountMutez)
	}
	if err := validateFee(params.FeeMutez); err != nil {
		return OperationParams{}, err
	}
	return OperationParams{
		Kind:         OpKindTransaction,
		Destination:  params.Destination,
		AmountMutez:  params.AmountMutez,
		FeeMutez:     params.FeeMutez,
		GasLimit:     params.GasLimit,
		StorageLimit: params.StorageLimit,
		Parameters:   params.Parameters,
	}, nil
}

// NormalizeOriginate 校验并归一化合约部署参数。
func NormalizeOriginate(params OriginateParams) (OperationParams, error) {
	if len(params.Code) == 0 {
		return OperationParams{}, errMissingCode
	}
	if params.BalanceMutez < 0 {
		return OperationParams{}, fmt.Errorf("negative balance %d", params.BalanceMutez)
	}
	if err := validateFee(params.FeeMutez); err != nil {
		return OperationParams{}, err
	}
	return OperationParams{
		Kind:         OpKindOrigination,
		BalanceMutez: params.BalanceMutez,
		Code:         params.Code,
		Storage:      params.Storage,
		Delegate:     params.Delegate,
		FeeMutez:     params.FeeMutez,
	}, nil
}

// NormalizeDelegate 校验并归一化委托参数。
func NormalizeDelegate(params DelegateParams) (OperationParams, error) {
	if params.Delegate == "" {
		return OperationParams{}, errMissingDelegate
	}
	if err := validateFee(params.FeeMutez); err != nil {
		return OperationParams{}, err
	}
	return OperationParams{
		Kind:     OpKindDelegation,
		Delegate: params.Delegate,
		FeeMutez: params.FeeMutez,
	}, nil
}

func validateFee(fee int64) error {
	if fee < 0 {
		return fmt.Errorf("negative fee %d", fee)
	}
	return nil
}
