// optimistic — контракт snapshot/rollback для «мгновенных» переключателей
// (лайк, подписка), реализованный один раз вместо повторения на каждом
// экране.
//
// Алгоритм для булева переключателя с привязанным счётчиком:
//  1. снять снимок текущего состояния;
//  2. применить перевёрнутое состояние локально и показать его сразу,
//     не дожидаясь сети;
//  3. выполнить сетевой вызов;
//  4. успех — перезаписать локальное состояние авторитетным ответом
//     сервера (итоговый счётчик мог измениться чужими действиями);
//  5. отказ — восстановить ровно снимок из шага 1 (не повторный флип:
//     слепая инверсия даёт двойное переворачивание, если успел второй
//     переключатель), без блокирующей ошибки для пользователя.
//
// Быстрое повторное нажатие до разрешения первого вызова намеренно не
// защищено: две сверки гоняются, побеждает последняя разрешившаяся.
// Политика (queue, debounce, блокировка на время полёта) — продуктовое
// решение вызывающего.
package optimistic

import "context"

// Toggle выполняет один оптимистичный переключатель.
//
// current — состояние до изменения; flip — локальное перевёрнутое
// состояние; render — доведение состояния до потребителя (вызывается
// минимум дважды: оптимистично и на сверке); commit — сетевой вызов,
// возвращающий авторитетное состояние сервера.
//
// Гарантия порядка: render(flip(current)) происходит строго до commit.
// Возвращается итоговое состояние и ошибка commit (для журналирования;
// откат к снимку уже выполнен).
func Toggle[S any](
	ctx context.Context,
	current S,
	flip func(S) S,
	render func(S),
	commit func(context.Context) (S, error),
) (S, error) {
	snapshot := current

	render(flip(current))

	final, err := commit(ctx)
	if err != nil {
		render(snapshot)
		return snapshot, err
	}

	render(final)

	return final, nil
}
