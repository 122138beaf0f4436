package models

// ViewState is what the post page can show for a slug.
type ViewState int

const (
	// ViewPending means the post is still being resolved.
	ViewPending ViewState = iota
	ViewReady
	ViewNotFound
)

func (s ViewState) String() string {
	switch s {
	case ViewPending:
		return "pending"
	case ViewReady:
		return "ready"
	case ViewNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// PostView is the post page model.
type PostView struct {
	State       ViewState
	Post        *PostDetail
	ReadingTime int
}

func PendingView() PostView {
	return PostView{State: ViewPending}
}

func NotFoundView() PostView {
	return PostView{State: ViewNotFound}
}

func ReadyView(post *PostDetail) PostView {
	return PostView{
		State:       ViewReady,
		Post:        post,
		ReadingTime: post.ReadingTime(),
	}
}
