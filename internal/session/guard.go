package session

// Decision — трёхзначный результат защиты экрана.
// Initializing обязан давать Wait, а не Redirect: иначе перезагрузка у
// залогиненного пользователя мигает редиректом.
type Decision int

const (
	// DecisionWait — показать нейтральный индикатор загрузки;
	// ни редиректа, ни защищённого контента.
	DecisionWait Decision = iota
	// DecisionRedirect — увести на экран входа.
	DecisionRedirect
	// DecisionAllow — показать защищённый контент.
	DecisionAllow
)

func (d Decision) String() string {
	switch d {
	case DecisionWait:
		return "wait"
	case DecisionRedirect:
		return "redirect"
	case DecisionAllow:
		return "allow"
	default:
		return "unknown"
	}
}

// Guard — защита защищённых экранов поверх Manager.
type Guard struct {
	manager *Manager
	// LoginPath — точка входа, куда уводит Redirect.
	LoginPath string
}

// NewGuard создаёт guard с точкой входа /login.
func NewGuard(m *Manager) *Guard {
	return &Guard{manager: m, LoginPath: "/login"}
}

// Decide отображает текущее состояние сессии в решение guard'а.
func (g *Guard) Decide() Decision {
	return Resolve(g.manager.Current().State)
}

// Resolve — чистая функция состояния в решение; вынесена отдельно,
// чтобы её можно было проверить без менеджера.
func Resolve(s State) Decision {
	switch s {
	case StateInitializing:
		return DecisionWait
	case StateAuthenticated:
		return DecisionAllow
	default:
		return DecisionRedirect
	}
}
