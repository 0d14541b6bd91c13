package ledger

import "github.com/d60-Lab/blog-reactions/internal/model"

// Transition 一次 like/dislike 请求对 (对象, 用户) 状态与计数的影响
type Transition struct {
	From         model.ReactionState
	To           model.ReactionState
	DeltaLike    int64
	DeltaDislike int64
}

// NoOp 同向重复表态
func (t Transition) NoOp() bool { return t.From == t.To }

// Next 状态机：
//
//	none     --like-->    liked     (+1, 0)
//	none     --dislike--> disliked  (0, +1)
//	liked    --dislike--> disliked  (-1, +1)
//	disliked --like-->    liked     (+1, -1)
//	liked    --like-->    liked     no-op
//	disliked --dislike--> disliked  no-op
func Next(from model.ReactionState, like bool) Transition {
	t := Transition{From: from, To: model.StateDisliked}
	if like {
		t.To = model.StateLiked
	}
	if t.NoOp() {
		return t
	}

	if like {
		t.DeltaLike = 1
	} else {
		t.DeltaDislike = 1
	}
	switch from {
	case model.StateLiked:
		t.DeltaLike--
	case model.StateDisliked:
		t.DeltaDislike--
	}
	return t
}
