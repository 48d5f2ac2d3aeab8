package session

import (
	"context"

	"github.com/LeastAuthority/thanos-wallet/internal/front/proto"
)

// WalletState 返回钱包状态快照。缓存有效时直接命中，
// 首次调用或状态脏时同步向 authority 拉取。
func (s *Session) WalletState(ctx context.Context) (proto.WalletState, error) {
	s.stateMu.Lock()
	if s.state != nil && !s.dirty {
		snap := *s.state
		s.stateMu.Unlock()
		return snap, nil
	}
	s.stateMu.Unlock()
	return s.FetchState(ctx)
}

// FetchState 绕过缓存向 authority 拉取状态并回填缓存。
// 往返期间若又有状态更新到达，返回值仍交给调用方，但不回填缓存，
// 避免迟到的旧快照覆盖更新的快照。
func (s *Session) FetchState(ctx context.Context) (proto.WalletState, error) {
	s.stateMu.Lock()
	gen := s.stateGen
	s.stateMu.Unlock()
	resp, err := roundTrip[*proto.GetStateResponse](ctx, s.ch, &proto.GetStateRequest{})
	if err != nil {
		return proto.WalletState{}, err
	}
	s.storeState(resp.State, gen)
	return resp.State, nil
}

// CachedState 返回缓存快照，不触发任何网络往返。
func (s *Session) CachedState() (proto.WalletState, bool) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.state == nil {
		return proto.WalletState{}, false
	}
	return *s.state, true
}

func (s *Session) storeState(st proto.WalletState, gen uint64) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.stateGen != gen {
		// 拉取期间又有更新通知，这份快照已经过时。
		return
	}
	s.state = &st
	s.dirty = false
}

func (s *Session) markDirty() {
	s.stateMu.Lock()
	s.dirty = true
	s.stateGen++
	s.stateMu.Unlock()
}

// refetchState 是状态更新通知触发的后台重拉。
// 失败不致命：保留旧快照并置脏，下次读取时再同步拉取。
func (s *Session) refetchState() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.StateRefetchTimeout)
	defer cancel()
	if _, err := s.FetchState(ctx); err != nil {
		s.logger.Warn("state refetch failed, keeping stale snapshot", "err", err)
		s.metrics.observeRefetch("error")
		return
	}
	s.metrics.observeRefetch("ok")
}
