// Package price 实现多行情源的虚拟币价格解析。
// 解析器按统一的试探列表依次调用行情源：首选源在前，其余源按固定
// 的规范顺序排列，每个源至多出现一次。首个成功解析出正数价格的源
// 即为最终结果；全部失败时按最后一个错误的类别返回传输失败或数据
// 失败。各源的交易对符号约定由表驱动的映射给出。
package price
