package model

type Model[T any] interface {
	DTO() *T
}

func DTOList[N Model[T], T any](l []N) []*T {
	res := make([]*T, len(l))

	for i, x := range l {
		res[i] = x.DTO()
	}

	return res
}

func FirstString(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}

	return ""
}
